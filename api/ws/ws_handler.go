package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/zlnvch/heartfolio/diary"
	"github.com/zlnvch/heartfolio/gesture"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/service"
)

const Subprotocol = "heartfolio-v1"

var errNoPage = errors.New("no page is open")

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

// NewWsUpgrader only accepts requiredOrigin, or any origin when it is empty.
func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if requiredOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == requiredOrigin
		},
		Subprotocols: []string{Subprotocol},
	}
}

// ServeWS handles websocket requests from the peer. The session token is
// the second entry of the subprotocol list.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	protocolsSplit := strings.Split(protocols, ",")

	if len(protocolsSplit) != 2 || strings.TrimSpace(protocolsSplit[0]) != Subprotocol {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token := strings.TrimSpace(protocolsSplit[1])

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, user, h.HandleWsMessage)
	h.Hub.OpenCh <- client

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type openMessage struct {
	EntryId      string  `json:"entryId"`
	CanvasWidth  float64 `json:"canvasWidth"`
	CanvasHeight float64 `json:"canvasHeight"`
}

type elementMessage struct {
	Id      string             `json:"id"`
	Kind    models.ElementType `json:"kind"`
	Content string             `json:"content"`
	Style   diary.Style        `json:"style"`
}

type pointsMessage struct {
	Points []models.Point `json:"points"`
}

type drawModeMessage struct {
	On bool `json:"on"`
}

type toolMessage struct {
	Tool diary.Tool `json:"tool"`
}

// gestureMessage batches the events of one element since the last frame.
type gestureMessage struct {
	Id     string          `json:"id"`
	Events []gesture.Event `json:"events"`
}

type responseMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Invalid JSON: %v", err)
		return
	}

	var resp responseMessage

	switch msg.Type {
	case "open":
		var openMsg openMessage
		if !unmarshal(msg, &openMsg) {
			return
		}
		resp = h.handleOpen(client, openMsg)

	case "stroke_point":
		// Points stream without acknowledgement
		var pointsMsg pointsMessage
		if !unmarshal(msg, &pointsMsg) || client.page == nil {
			return
		}
		for _, pt := range pointsMsg.Points {
			if err := client.page.ExtendStroke(pt.X, pt.Y); err != nil {
				break
			}
		}
		return

	case "gesture":
		var gestureMsg gestureMessage
		if !unmarshal(msg, &gestureMsg) || client.page == nil {
			return
		}
		for _, ev := range gestureMsg.Events {
			if err := client.page.Gesture(gestureMsg.Id, ev); err != nil {
				resp = failure("gesture_response", err, map[string]any{"id": gestureMsg.Id})
				break
			}
		}

	default:
		resp = h.handlePageMessage(client, msg)
	}

	if resp.Type != "" {
		client.sendJSON(resp)
	}
}

func unmarshal(msg message, dst any) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		log.Printf("Invalid %s data: %v", msg.Type, err)
		return false
	}
	return true
}

func failure(respType string, err error, data map[string]any) responseMessage {
	if data == nil {
		data = map[string]any{}
	}
	data["success"] = false
	// An empty text is the dialog being dismissed, not an error
	if errors.Is(err, diary.ErrEmptyText) {
		data["dismissed"] = true
	} else {
		data["error"] = err.Error()
	}
	return responseMessage{Type: respType, Data: data}
}

func success(respType string, data map[string]any) responseMessage {
	if data == nil {
		data = map[string]any{}
	}
	data["success"] = true
	return responseMessage{Type: respType, Data: data}
}

func (h *Handler) handleOpen(client *Client, openMsg openMessage) responseMessage {
	opts := diary.Options{
		CanvasWidth:  openMsg.CanvasWidth,
		CanvasHeight: openMsg.CanvasHeight,
		OnEvent: func(ev diary.Event) {
			client.sendJSON(responseMessage{Type: "page_event", Data: ev})
		},
	}
	page, err := h.Service.OpenPage(client.ctx, client.user.Id, openMsg.EntryId, opts)
	if err != nil {
		log.Printf("OpenPage failed: %v", err)
		return failure("open_response", err, map[string]any{"entryId": openMsg.EntryId})
	}
	client.page = page
	return success("open_response", map[string]any{"entryId": openMsg.EntryId, "elements": page.Elements()})
}

// handlePageMessage runs the edit operations on the open page.
func (h *Handler) handlePageMessage(client *Client, msg message) responseMessage {
	respType := msg.Type + "_response"
	page := client.page

	var elMsg elementMessage
	if !unmarshal(msg, &elMsg) {
		return responseMessage{}
	}
	if page == nil {
		return failure(respType, errNoPage, nil)
	}

	elementResult := func(el models.DiaryElement, err error) responseMessage {
		if err != nil {
			return failure(respType, err, map[string]any{"id": elMsg.Id})
		}
		return success(respType, map[string]any{"element": el})
	}
	pageResult := func(changed bool) responseMessage {
		return success(respType, map[string]any{
			"changed":  changed,
			"elements": page.Elements(),
			"canUndo":  page.CanUndo(),
			"canRedo":  page.CanRedo(),
		})
	}

	switch msg.Type {
	case "add_element":
		return elementResult(page.AddElement(elMsg.Kind, elMsg.Content, elMsg.Style))

	case "edit_element":
		return elementResult(page.EditElement(elMsg.Id, elMsg.Content, elMsg.Style))

	case "delete_element":
		if err := page.DeleteElement(elMsg.Id); err != nil {
			return failure(respType, err, map[string]any{"id": elMsg.Id})
		}
		return success(respType, map[string]any{"id": elMsg.Id})

	case "bring_to_front":
		return elementResult(page.BringToFront(elMsg.Id))

	case "toggle_shadow":
		return elementResult(page.ToggleShadow(elMsg.Id))

	case "cycle_font":
		return elementResult(page.CycleFont(elMsg.Id))

	case "stroke_begin":
		var pointsMsg pointsMessage
		if !unmarshal(msg, &pointsMsg) || len(pointsMsg.Points) == 0 {
			return failure(respType, errors.New("missing start point"), nil)
		}
		start := pointsMsg.Points[0]
		if err := page.BeginStroke(start.X, start.Y); err != nil {
			return failure(respType, err, nil)
		}
		for _, pt := range pointsMsg.Points[1:] {
			page.ExtendStroke(pt.X, pt.Y)
		}
		return success(respType, nil)

	case "stroke_end":
		el, kept := page.EndStroke()
		if !kept {
			return success(respType, map[string]any{"kept": false})
		}
		return success(respType, map[string]any{"kept": true, "element": el})

	case "set_draw_mode":
		var modeMsg drawModeMessage
		if !unmarshal(msg, &modeMsg) {
			return responseMessage{}
		}
		page.SetDrawMode(modeMsg.On)
		return success(respType, map[string]any{"on": page.DrawMode()})

	case "set_tool":
		var tMsg toolMessage
		if !unmarshal(msg, &tMsg) {
			return responseMessage{}
		}
		if err := page.SetTool(tMsg.Tool); err != nil {
			return failure(respType, err, nil)
		}
		return success(respType, map[string]any{"tool": page.Tool()})

	case "undo":
		return pageResult(page.Undo())

	case "redo":
		return pageResult(page.Redo())

	case "deselect_all":
		page.DeselectAll()
		return responseMessage{}
	}

	log.Printf("Unknown message type: %v", msg.Type)
	return responseMessage{}
}
