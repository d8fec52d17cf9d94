package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/repository"
)

// WriteJob is one storage call. Jobs run in the order they were enqueued.
// A job stamped with an older generation than its user's current one is
// skipped.
type WriteJob struct {
	Op         string
	UserId     string
	Generation uint64
	Run        func(ctx context.Context) error
}

// Persister runs fire-and-forget writes on a single goroutine so callers
// never wait on storage. Failures are logged and dropped.
type Persister struct {
	WriteCh chan WriteJob
	timeout time.Duration

	// held while a job executes, so Invalidate waits out the one in flight
	runMu sync.Mutex

	genMu       sync.Mutex
	generations map[string]uint64

	stateMu sync.Mutex
	done    chan struct{}
	stopped bool
}

func NewPersister(bufferSize int, timeout time.Duration) *Persister {
	return &Persister{
		WriteCh:     make(chan WriteJob, bufferSize), // buffer to absorb bursts
		timeout:     timeout,
		generations: make(map[string]uint64),
		done:        make(chan struct{}),
	}
}

// Generation returns the user's current write generation.
func (p *Persister) Generation(userId string) uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.generations[userId]
}

// Invalidate drops every write queued for the user so far, and any later
// write stamped before this call. It returns once no such write is running.
func (p *Persister) Invalidate(userId string) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	p.genMu.Lock()
	defer p.genMu.Unlock()
	p.generations[userId]++
}

// Enqueue blocks only when the buffer is full. Once Run has returned, a job
// that does not fit is dropped.
func (p *Persister) Enqueue(job WriteJob) {
	select {
	case p.WriteCh <- job:
		return
	default:
	}

	p.stateMu.Lock()
	done := p.done
	p.stateMu.Unlock()

	select {
	case p.WriteCh <- job:
	case <-done:
		log.Printf("Persister stopped, dropping %s for user %s", job.Op, job.UserId)
	}
}

func (p *Persister) run(job WriteJob) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if job.Generation < p.Generation(job.UserId) {
		log.Printf("Skipping stale %s for user %s", job.Op, job.UserId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := job.Run(ctx); err != nil {
		log.Printf("Error persisting %s for user %s: %v", job.Op, job.UserId, err)
	}
}

func (p *Persister) setStopped(stopped bool) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if stopped == p.stopped {
		return
	}
	if stopped {
		close(p.done)
	} else {
		p.done = make(chan struct{})
	}
	p.stopped = stopped
}

// Run drains WriteCh until shutdownCtx is done, then flushes whatever is
// still buffered before returning.
func (p *Persister) Run(shutdownCtx context.Context) {
	p.setStopped(false)
	defer p.setStopped(true)

	for {
		select {
		case job := <-p.WriteCh:
			p.run(job)

		case <-shutdownCtx.Done():
			for {
				select {
				case job := <-p.WriteCh:
					p.run(job)
				default:
					return
				}
			}
		}
	}
}

// PagePersistence routes a diary page's writes through the Persister.
// Writes are stamped with the user's generation at the time the page was
// opened, so a page opened before Invalidate can never write again.
type PagePersistence struct {
	persister  *Persister
	repos      *repository.Repositories
	userId     string
	entryId    string
	generation uint64
}

func NewPagePersistence(persister *Persister, repos *repository.Repositories, userId string, entryId string) *PagePersistence {
	return &PagePersistence{
		persister:  persister,
		repos:      repos,
		userId:     userId,
		entryId:    entryId,
		generation: persister.Generation(userId),
	}
}

func (pp *PagePersistence) SaveElement(element models.DiaryElement) {
	pp.persister.Enqueue(WriteJob{
		Op:         "diary element " + element.Id,
		UserId:     pp.userId,
		Generation: pp.generation,
		Run: func(ctx context.Context) error {
			return pp.repos.DiaryElements.Save(ctx, pp.userId, element)
		},
	})
}

func (pp *PagePersistence) DeleteElement(id string) {
	pp.persister.Enqueue(WriteJob{
		Op:         "diary element delete " + id,
		UserId:     pp.userId,
		Generation: pp.generation,
		Run: func(ctx context.Context) error {
			return pp.repos.DiaryElements.Delete(ctx, pp.userId, id)
		},
	})
}

func (pp *PagePersistence) ReplaceElements(elements []models.DiaryElement) {
	pp.persister.Enqueue(WriteJob{
		Op:         "diary entry elements " + pp.entryId,
		UserId:     pp.userId,
		Generation: pp.generation,
		Run: func(ctx context.Context) error {
			return pp.repos.ReplaceEntryElements(ctx, pp.userId, pp.entryId, elements)
		},
	})
}
