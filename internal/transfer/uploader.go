package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"uplink/internal/logging"
	"uplink/internal/storage"
)

const (
	defaultPartSize    = 8 * 1024 * 1024
	defaultConcurrency = 4
)

// Source supplies the bytes of one upload.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Request describes one session start.
type Request struct {
	Key        string
	Source     Source
	Size       int64
	Checkpoint *Checkpoint
}

// Callbacks receive session events. Calls for one session are serialized and
// never overlap. Progress receives a private copy of the checkpoint.
type Callbacks struct {
	Progress func(cp *Checkpoint)
	Complete func()
	Fail     func(err error)
}

// Handle controls a running session.
type Handle interface {
	// Cancel stops outstanding network activity. It never blocks and may be
	// called repeatedly. Once it returns the session reports no further
	// progress or failure. Completion is the one exception: when every part
	// was already sent, the final commit is not interrupted, and a commit the
	// store accepted is still reported through Complete.
	Cancel()
}

// Options tunes an Uploader.
type Options struct {
	PartSize    int64
	Concurrency int
	Logger      *slog.Logger
}

// Uploader starts resumable sessions against a storage client.
type Uploader struct {
	client      storage.Client
	partSize    int64
	concurrency int
	logger      *slog.Logger
}

// NewUploader builds an Uploader. Zero options fall back to 8 MiB parts and
// four parts in flight.
func NewUploader(client storage.Client, opts Options) *Uploader {
	partSize := opts.PartSize
	if partSize <= 0 {
		partSize = defaultPartSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Uploader{
		client:      client,
		partSize:    partSize,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(opts.Logger, "transfer"),
	}
}

// Start validates req and launches the session in its own goroutine. Errors
// returned here mean the transfer never began; failures after launch are
// reported through cb.Fail. The session is not bound to ctx cancellation,
// only to the returned Handle.
func (u *Uploader) Start(ctx context.Context, req Request, cb Callbacks) (Handle, error) {
	if strings.TrimSpace(req.Key) == "" {
		return nil, fmt.Errorf("%w: destination key is empty", ErrInvalidRequest)
	}
	if req.Source == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidRequest)
	}
	if req.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidRequest, req.Size)
	}

	cp := req.Checkpoint.Clone()
	if cp.Empty() {
		cp = nil
	} else if cp.PartSize <= 0 {
		return nil, fmt.Errorf("%w: checkpoint for upload %s has no part size", ErrInvalidRequest, cp.UploadID)
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		uploader: u,
		key:      req.Key,
		source:   req.Source,
		size:     req.Size,
		cp:       cp,
		cb:       cb,
		cancel:   cancel,
		logger:   logging.WithContext(logging.WithObjectKey(ctx, req.Key), u.logger),
	}
	go s.run(sessionCtx)
	return s, nil
}

// Discard aborts the multipart upload behind cp so the store can release
// the parts it already holds.
func (u *Uploader) Discard(ctx context.Context, key string, cp *Checkpoint) error {
	if cp.Empty() {
		return nil
	}
	if err := u.client.AbortMultipartUpload(ctx, key, cp.UploadID); err != nil {
		return &ChunkError{Err: err}
	}
	return nil
}

type session struct {
	uploader *Uploader
	key      string
	source   Source
	size     int64
	cb       Callbacks
	cancel   context.CancelFunc
	logger   *slog.Logger

	cancelled atomic.Bool
	once      sync.Once

	mu sync.Mutex // guards cp and serializes callbacks
	cp *Checkpoint
}

func (s *session) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		s.cancel()
	})
}

func (s *session) run(ctx context.Context) {
	defer s.cancel()
	defer s.closeSource()

	if s.cp == nil {
		uploadID, err := s.uploader.client.CreateMultipartUpload(ctx, s.key)
		if err != nil {
			s.fail(ctx, &ChunkError{Err: err})
			return
		}
		s.mu.Lock()
		s.cp = &Checkpoint{UploadID: uploadID, PartSize: s.uploader.partSize}
		s.emitProgressLocked()
		s.mu.Unlock()
		s.logger.Debug("multipart upload created", logging.String(logging.FieldUploadID, uploadID))
	}

	uploadID := s.cp.UploadID
	partSize := s.cp.PartSize
	total := PartCount(s.size, partSize)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.uploader.concurrency)
	for number := int32(1); number <= total; number++ {
		if groupCtx.Err() != nil {
			break
		}
		s.mu.Lock()
		done := s.cp.Has(number)
		s.mu.Unlock()
		if done {
			continue
		}
		group.Go(func() error {
			offset, length := partRange(number, s.size, partSize)
			body := io.NewSectionReader(s.source, offset, length)
			etag, err := s.uploader.client.UploadPart(groupCtx, s.key, uploadID, number, body, length)
			if err != nil {
				return &ChunkError{Part: number, Err: err}
			}
			s.mu.Lock()
			s.cp.Add(Part{Number: number, ETag: etag, Size: length})
			s.emitProgressLocked()
			s.mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.fail(ctx, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	parts := s.cp.completedParts()
	s.mu.Unlock()
	// The commit runs detached from Cancel: aborting it could leave the object
	// committed while the caller still holds a checkpoint for an upload ID the
	// store has already retired.
	if err := s.uploader.client.CompleteMultipartUpload(context.WithoutCancel(ctx), s.key, uploadID, parts); err != nil {
		s.fail(ctx, &ChunkError{Err: err})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("multipart upload completed",
		logging.String(logging.FieldUploadID, uploadID),
		logging.Int("parts", len(parts)),
		logging.Bool("after_cancel", s.cancelled.Load()),
	)
	if s.cb.Complete != nil {
		s.cb.Complete()
	}
}

func (s *session) emitProgressLocked() {
	if s.cancelled.Load() || s.cb.Progress == nil {
		return
	}
	s.cb.Progress(s.cp.Clone())
}

// fail reports err unless the session was cancelled, in which case the error
// is only the echo of that cancellation.
func (s *session) fail(ctx context.Context, err error) {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return
	}
	s.logger.Warn("multipart transfer failed", logging.Error(err))
	if s.cb.Fail != nil {
		s.cb.Fail(err)
	}
}

func (s *session) closeSource() {
	if closer, ok := s.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Debug("close upload source", logging.Error(err))
		}
	}
}
