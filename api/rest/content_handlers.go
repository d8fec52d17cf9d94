package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/service"
)

func (h *Handler) handleListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.Service.ListMemories(r.Context(), userFrom(r).Id, r.URL.Query().Get("album"))
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, memories)
}

func (h *Handler) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	var req service.MemoryInput
	if !h.decode(w, r, &req) {
		return
	}
	memory, err := h.Service.SaveMemory(r.Context(), userFrom(r).Id, req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, memory)
}

func (h *Handler) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteMemory(r.Context(), userFrom(r).Id, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.Service.Albums(r.Context(), userFrom(r).Id)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, albums)
}

type renameAlbumRequest struct {
	NewName string `json:"newName"`
}

func (h *Handler) handleRenameAlbum(w http.ResponseWriter, r *http.Request) {
	var req renameAlbumRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.RenameAlbum(r.Context(), userFrom(r).Id, mux.Vars(r)["name"], req.NewName); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleListPaperBits(w http.ResponseWriter, r *http.Request) {
	bits, err := h.Service.ListPaperBits(r.Context(), userFrom(r).Id, r.URL.Query().Get("album"))
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, bits)
}

func (h *Handler) handleAddPaperBit(w http.ResponseWriter, r *http.Request) {
	var req service.PaperBitInput
	if !h.decode(w, r, &req) {
		return
	}
	bit, err := h.Service.AddPaperBit(r.Context(), userFrom(r).Id, req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, bit)
}

func (h *Handler) handleUpdatePaperBit(w http.ResponseWriter, r *http.Request) {
	var req service.PaperBitChange
	if !h.decode(w, r, &req) {
		return
	}
	bit, err := h.Service.UpdatePaperBit(r.Context(), userFrom(r).Id, mux.Vars(r)["id"], req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, bit)
}

func (h *Handler) handleDeletePaperBit(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePaperBit(r.Context(), userFrom(r).Id, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Service.ListTodos(r.Context(), userFrom(r).Id)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, todos)
}

func (h *Handler) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req service.TodoInput
	if !h.decode(w, r, &req) {
		return
	}
	todo, err := h.Service.AddTodo(r.Context(), userFrom(r).Id, req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, todo)
}

func (h *Handler) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.Service.ToggleTodo(r.Context(), userFrom(r).Id, mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, todo)
}

type moveRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

func (h *Handler) handleMoveTodo(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !h.decode(w, r, &req) {
		return
	}
	todo, err := h.Service.MoveTodo(r.Context(), userFrom(r).Id, mux.Vars(r)["id"], req.X, req.Y, req.Rotation)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, todo)
}

func (h *Handler) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTodo(r.Context(), userFrom(r).Id, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListEntries(r.Context(), userFrom(r).Id)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, entries)
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req service.EntryInput
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.Service.CreateEntry(r.Context(), userFrom(r).Id, req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, entry)
}

func (h *Handler) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req service.EntryInput
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), userFrom(r).Id, mux.Vars(r)["id"], req)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, entry)
}

func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEntry(r.Context(), userFrom(r).Id, mux.Vars(r)["id"]); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleListElements(w http.ResponseWriter, r *http.Request) {
	elements, err := h.Service.ListElements(r.Context(), userFrom(r).Id, mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, elements)
}

func (h *Handler) handleGetHome(w http.ResponseWriter, r *http.Request) {
	h.sendResponse(w, h.Service.GetHome(r.Context(), userFrom(r).Id))
}

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileChange
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.SaveProfile(r.Context(), userFrom(r).Id, req); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleSaveStickers(w http.ResponseWriter, r *http.Request) {
	var req []models.HomeSticker
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.SaveHomeStickers(r.Context(), userFrom(r).Id, req); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, req)
}

func (h *Handler) handleMoveDeco(w http.ResponseWriter, r *http.Request) {
	var req models.DecoPosition
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.MoveDeco(r.Context(), userFrom(r).Id, mux.Vars(r)["name"], req); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

type themeBody struct {
	Theme string `json:"theme"`
}

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	h.sendResponse(w, themeBody{Theme: h.Service.Theme(r.Context())})
}

func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.SetTheme(r.Context(), req.Theme); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, req)
}

type imageResponse struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// handleUploadImage takes a multipart form with a "folder" field and a
// "file" part.
func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(service.MaxImageBytes); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name, err := h.Service.UploadImage(r.Context(), userFrom(r).Id, r.FormValue("folder"), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, imageResponse{Name: name})
}

func (h *Handler) handleImageURL(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	url, err := h.Service.ImageURL(r.Context(), userFrom(r).Id, name)
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, imageResponse{Name: name, URL: url})
}
