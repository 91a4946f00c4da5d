// Package fetch resolves and downloads the remote sources of a content
// sequence. Tasks run in fixed-size concurrent batches separated by a
// cooldown pause, transient failures retry with exponential backoff, and
// items that cannot be retrieved are replaced by solid-color placeholder
// clips so the assembled timeline keeps its length.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexmu/montage-api/internal/media"
	"github.com/alexmu/montage-api/internal/session"
	"github.com/alexmu/montage-api/internal/timeline"
)

// Static errors for scheduler operations.
var (
	// ErrProcessorRequired is returned when no media processor is provided.
	ErrProcessorRequired = errors.New("fetch: media processor is required")
	// ErrEmptySequence is returned when the content sequence has no items.
	ErrEmptySequence = errors.New("fetch: content sequence is empty")
	// ErrAllItemsFailed is returned when not a single item could be fetched.
	ErrAllItemsFailed = errors.New("fetch: no items could be fetched")
	// ErrNonPositiveDuration is returned for items with a zero or negative duration.
	ErrNonPositiveDuration = errors.New("fetch: item duration must be positive")
	// ErrUnsupportedType is returned for items of an unknown content type.
	ErrUnsupportedType = errors.New("fetch: unsupported content type")
	// ErrUnresolvedContent is returned when a content ID has no source descriptor.
	ErrUnresolvedContent = errors.New("fetch: content has no resolved source")
	// ErrInvalidURL is returned for source URLs that are not plain http(s).
	ErrInvalidURL = errors.New("fetch: invalid source URL")
	// ErrBlockedHost is returned for hosts known to reject hot-linked downloads.
	ErrBlockedHost = errors.New("fetch: host blocks direct downloads")
	// ErrServerError is returned when the server responds with a 5xx status code.
	ErrServerError = errors.New("fetch: server error")
	// ErrRateLimited is returned when the server responds with a 429 status code.
	ErrRateLimited = errors.New("fetch: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-retryable status code.
	ErrRequestFailed = errors.New("fetch: request failed")
	// ErrVerificationFailed is returned when a downloaded payload does not decode.
	ErrVerificationFailed = errors.New("fetch: payload verification failed")
)

// Defaults applied by NewScheduler when no option overrides them.
const (
	defaultBatchSize     = 20
	defaultBatchCooldown = 3 * time.Second
	defaultProviderDelay = 500 * time.Millisecond
	defaultMaxRetries    = 3
	defaultBaseBackoff   = 2 * time.Second
	defaultVideoTimeout  = 30 * time.Second
	defaultImageTimeout  = 10 * time.Second
)

// blockedHosts lists hosting domains that reject hot-linked downloads.
// Items resolving to these hosts fail immediately without a network attempt.
var blockedHosts = []string{
	"istockphoto.com",
	"gettyimages.com",
	"shutterstock.com",
	"alamy.com",
	"dreamstime.com",
}

// pacedProviders lists stock video providers whose fetches receive an extra
// per-request delay on top of batch cooldowns.
var pacedProviders = []string{
	"pexels.com",
	"pixabay.com",
}

// Sources maps content IDs to their resolved download locations, split by
// content type. A missing entry means the item is unavailable.
type Sources struct {
	Videos map[string]timeline.SourceDescriptor
	Images map[string]timeline.SourceDescriptor
}

// Scheduler downloads sequence items in batches and reports per-item
// outcomes. The inter-batch cooldown is scheduler state, so concurrent
// renders with separate schedulers never throttle each other.
type Scheduler struct {
	processor     media.Processor
	httpClient    *http.Client
	logger        *slog.Logger
	batchSize     int
	batchCooldown time.Duration
	providerDelay time.Duration
	maxRetries    int
	baseBackoff   time.Duration
	videoTimeout  time.Duration
	imageTimeout  time.Duration
}

// SchedulerOption is a function that configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) SchedulerOption {
	return func(s *Scheduler) {
		s.httpClient = c
	}
}

// WithLogger sets the logger used for per-item progress and failures.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithBatchSize sets how many downloads run concurrently per batch.
func WithBatchSize(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchCooldown sets the pause between consecutive batches.
func WithBatchCooldown(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.batchCooldown = d
		}
	}
}

// WithProviderDelay sets the extra delay before fetches from paced providers.
func WithProviderDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.providerDelay = d
		}
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.baseBackoff = d
		}
	}
}

// WithFetchTimeouts sets the per-attempt timeouts for video and image fetches.
func WithFetchTimeouts(video, image time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if video > 0 {
			s.videoTimeout = video
		}
		if image > 0 {
			s.imageTimeout = image
		}
	}
}

// NewScheduler creates a download scheduler backed by the given media
// processor, which it uses for payload verification and placeholder
// synthesis.
func NewScheduler(processor media.Processor, opts ...SchedulerOption) (*Scheduler, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	s := &Scheduler{
		processor:     processor,
		httpClient:    &http.Client{},
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		batchCooldown: defaultBatchCooldown,
		providerDelay: defaultProviderDelay,
		maxRetries:    defaultMaxRetries,
		baseBackoff:   defaultBaseBackoff,
		videoTimeout:  defaultVideoTimeout,
		imageTimeout:  defaultImageTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// task is one item's unit of download work.
type task struct {
	index      int
	itemType   timeline.ItemType
	contentID  string
	sourceURL  string
	duration   float64
	outputPath string
}

// Fetch resolves and downloads every item of the sequence into the session
// directory. It returns the surviving media items sorted by original index
// together with a record for every item that did not download. Individual
// failures are absorbed; Fetch itself fails only when the input is empty or
// when not a single item survives.
func (s *Scheduler) Fetch(ctx context.Context, sess *session.Session, items []timeline.Item, sources Sources) ([]timeline.MediaItem, []timeline.FailureRecord, error) {
	if len(items) == 0 {
		return nil, nil, ErrEmptySequence
	}

	outcomes := make([]timeline.Outcome, len(items))
	tasks := s.buildTasks(sess, items, sources, outcomes)

	if err := s.runBatches(ctx, tasks, outcomes); err != nil {
		return nil, nil, err
	}

	s.substitutePlaceholders(ctx, sess, items, outcomes)

	mediaItems, failures := collect(outcomes)
	if len(mediaItems) == 0 {
		return nil, failures, fmt.Errorf("%w: %d items failed", ErrAllItemsFailed, len(failures))
	}

	s.logger.Info("fetch stage complete",
		slog.String("session_id", sess.ID),
		slog.Int("fetched", len(mediaItems)),
		slog.Int("failed", len(failures)),
	)

	return mediaItems, failures, nil
}

// buildTasks validates and resolves each item, recording immediate
// rejections in outcomes and returning the tasks worth a network attempt.
func (s *Scheduler) buildTasks(sess *session.Session, items []timeline.Item, sources Sources, outcomes []timeline.Outcome) []task {
	tasks := make([]task, 0, len(items))

	for i, item := range items {
		if err := s.resolveItem(i, item, sources, sess, &tasks); err != nil {
			s.logger.Warn("item rejected before download",
				slog.Int("index", i),
				slog.String("content_id", item.ContentID),
				slog.String("reason", err.Error()),
			)
			outcomes[i] = timeline.Outcome{Kind: timeline.OutcomeFailed, Index: i, Reason: err.Error()}
		}
	}

	return tasks
}

// resolveItem validates one item and appends its download task on success.
func (s *Scheduler) resolveItem(index int, item timeline.Item, sources Sources, sess *session.Session, tasks *[]task) error {
	if !item.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, item.Type)
	}
	if item.Duration <= 0 {
		return fmt.Errorf("%w: %.2f", ErrNonPositiveDuration, item.Duration)
	}

	lookup := sources.Images
	if item.Type == timeline.TypeVideo {
		lookup = sources.Videos
	}
	desc, ok := lookup[item.ContentID]
	if !ok || desc.URL == "" {
		return fmt.Errorf("%w: %s", ErrUnresolvedContent, item.ContentID)
	}

	host, err := urlHost(desc.URL)
	if err != nil {
		return err
	}
	if hostMatches(host, blockedHosts) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}

	*tasks = append(*tasks, task{
		index:      index,
		itemType:   item.Type,
		contentID:  item.ContentID,
		sourceURL:  desc.URL,
		duration:   item.Duration,
		outputPath: sess.SourcePath(index, sourceExt(item.Type, desc.URL)),
	})
	return nil
}

// runBatches executes tasks in fixed-size concurrent batches with a cooldown
// pause between batches. Per-task failures are recorded in outcomes, never
// returned; the error return covers only context cancellation.
func (s *Scheduler) runBatches(ctx context.Context, tasks []task, outcomes []timeline.Outcome) error {
	for start := 0; start < len(tasks); start += s.batchSize {
		if start > 0 {
			s.logger.Debug("batch cooldown",
				slog.Duration("pause", s.batchCooldown),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("fetch: context cancelled: %w", ctx.Err())
			case <-time.After(s.batchCooldown):
			}
		}

		end := start + s.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, t := range tasks[start:end] {
			g.Go(func() error {
				outcome, err := s.runTask(gctx, t)
				if err != nil {
					return err
				}
				outcomes[t.index] = outcome
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// runTask downloads and verifies a single item. Fetch failures are absorbed
// into the returned outcome; the error return is reserved for context
// cancellation, which aborts the whole batch.
func (s *Scheduler) runTask(ctx context.Context, t task) (timeline.Outcome, error) {
	if t.itemType == timeline.TypeVideo && s.providerDelay > 0 {
		if host, err := urlHost(t.sourceURL); err == nil && hostMatches(host, pacedProviders) {
			select {
			case <-ctx.Done():
				return timeline.Outcome{}, fmt.Errorf("fetch: context cancelled: %w", ctx.Err())
			case <-time.After(s.providerDelay):
			}
		}
	}

	item, err := s.download(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return timeline.Outcome{}, fmt.Errorf("fetch: context cancelled: %w", ctx.Err())
		}

		s.logger.Warn("item download failed",
			slog.Int("index", t.index),
			slog.String("content_id", t.contentID),
			slog.String("error", err.Error()),
		)
		return timeline.Outcome{Kind: timeline.OutcomeFailed, Index: t.index, Reason: err.Error()}, nil
	}

	s.logger.Debug("item downloaded",
		slog.Int("index", t.index),
		slog.String("content_id", t.contentID),
		slog.String("path", item.LocalPath),
	)
	return timeline.Outcome{Kind: timeline.OutcomeSuccess, Index: t.index, Item: item}, nil
}

// substitutePlaceholders synthesizes a solid-color clip for each failed slot
// that has a successful item earlier in the sequence. Slots before the first
// success stay dropped. The original failure remains on record either way.
func (s *Scheduler) substitutePlaceholders(ctx context.Context, sess *session.Session, items []timeline.Item, outcomes []timeline.Outcome) {
	firstSuccess := -1
	for i, o := range outcomes {
		if o.Kind == timeline.OutcomeSuccess {
			firstSuccess = i
			break
		}
	}
	if firstSuccess < 0 {
		return
	}

	for i := range outcomes {
		if outcomes[i].Kind != timeline.OutcomeFailed || i < firstSuccess {
			continue
		}

		dst := sess.Path(fmt.Sprintf("placeholder_%d.mp4", i))
		if err := s.processor.SynthesizePlaceholder(ctx, dst, items[i].Duration); err != nil {
			s.logger.Error("placeholder synthesis failed",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.Info("substituted placeholder clip",
			slog.Int("index", i),
			slog.String("reason", outcomes[i].Reason),
		)
		outcomes[i] = timeline.Outcome{
			Kind:   timeline.OutcomePlaceholder,
			Index:  i,
			Reason: outcomes[i].Reason,
			Item: timeline.MediaItem{
				Type:           timeline.TypeVideo,
				LocalPath:      dst,
				Duration:       items[i].Duration,
				NativeDuration: items[i].Duration,
				OriginalIndex:  i,
			},
		}
	}
}

// collect splits outcomes into ordered media items and failure records.
// Placeholder outcomes contribute to both.
func collect(outcomes []timeline.Outcome) ([]timeline.MediaItem, []timeline.FailureRecord) {
	var mediaItems []timeline.MediaItem
	var failures []timeline.FailureRecord

	for _, o := range outcomes {
		switch o.Kind {
		case timeline.OutcomeSuccess:
			mediaItems = append(mediaItems, o.Item)
		case timeline.OutcomePlaceholder:
			mediaItems = append(mediaItems, o.Item)
			failures = append(failures, timeline.FailureRecord{Index: o.Index, Reason: o.Reason})
		case timeline.OutcomeFailed:
			failures = append(failures, timeline.FailureRecord{Index: o.Index, Reason: o.Reason})
		}
	}

	timeline.SortMediaItems(mediaItems)
	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })

	return mediaItems, failures
}
