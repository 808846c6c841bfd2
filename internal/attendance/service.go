package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/metrics"
)

// Session outcomes reported to metrics.
const (
	resultOK       = "ok"
	resultNoData   = "missing_section"
	resultTraining = "training_failed"
	resultInput    = "malformed_input"
	resultTimeout  = "timeout"
	resultMismatch = "embedding_mismatch"
	resultError    = "error"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Sections    database.SectionReader
	Sheets      database.AttendanceWriter // nil disables persistence
	Matcher     *Matcher
	Cache       *classifier.Cache // nil retrains every session
	Policy      VotePolicy
	Classifier  classifier.Options
	ScanTimeout time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service runs attendance sessions and the correction workflow around stored sheets.
type Service struct {
	sections    database.SectionReader
	sheets      database.AttendanceWriter
	matcher     *Matcher
	cache       *classifier.Cache
	policy      VotePolicy
	clfOpts     classifier.Options
	scanTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewService validates cfg and creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Sections == nil {
		return nil, errors.New("section reader is required")
	}
	if cfg.Matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if cfg.Policy == (VotePolicy{}) {
		cfg.Policy = DefaultVotePolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy.Passes != cfg.Matcher.Passes() {
		return nil, fmt.Errorf("vote policy expects %d passes but scanner runs %d", cfg.Policy.Passes, cfg.Matcher.Passes())
	}
	if cfg.Classifier.Kind == "" {
		cfg.Classifier = classifier.DefaultOptions()
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = constants.DefaultScanTimeoutSeconds * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		sections:    cfg.Sections,
		sheets:      cfg.Sheets,
		matcher:     cfg.Matcher,
		cache:       cfg.Cache,
		policy:      cfg.Policy,
		clfOpts:     cfg.Classifier,
		scanTimeout: cfg.ScanTimeout,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}, nil
}

// Session is the result of one attendance-taking request.
type Session struct {
	ID         string                `json:"id"`
	Sheet      *database.StoredSheet `json:"-"`
	Records    []Record              `json:"records"`
	Identified []string              `json:"identified"`
	Boxes      int                   `json:"boxes"`
	Skipped    int                   `json:"skipped"`
	CacheHit   bool                  `json:"cache_hit"`
	Duration   time.Duration         `json:"duration_ns"`
}

// DecodeImage decodes a transport-encoded classroom photo.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrMalformedInput)
	}
	img, err := facematch.DecodePhoto(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return img, nil
}

// Classifier returns the section classifier, training it on a cache miss.
func (s *Service) Classifier(ctx context.Context, section string) (*classifier.Trained, bool, error) {
	version, found, err := s.sections.SectionVersion(ctx, section)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read section %s: %w", section, err)
	}
	if !found {
		return nil, false, fmt.Errorf("%w: %s", ErrMissingSectionData, section)
	}

	// Concurrent sessions on the section share this fill, so it must not die
	// with the request that happened to start it.
	trainCtx := context.WithoutCancel(ctx)
	train := func() (*classifier.Trained, int64, error) {
		stored, err := s.sections.GetSection(trainCtx, section)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load section %s: %w", section, err)
		}
		if stored == nil || len(stored.Embeddings) == 0 {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingSectionData, section)
		}
		start := time.Now()
		t, _, err := Train(stored.Embeddings, stored.Labels, s.clfOpts)
		if err != nil {
			return nil, 0, err
		}
		s.metrics.ObserveTraining(time.Since(start))
		s.logger.Info("classifier trained", "section", section, "version", stored.Version,
			"kind", t.Kind(), "students", len(t.Classes()), "samples", t.Samples(),
			"duration", time.Since(start).Round(time.Millisecond))
		return t, stored.Version, nil
	}

	if s.cache == nil {
		t, _, err := train()
		return t, false, err
	}
	t, hit, err := s.cache.GetOrTrain(section, version, train)
	if err == nil {
		s.metrics.CacheLookup(hit)
	}
	return t, hit, err
}

// Take runs a full attendance session for section on a classroom image and
// stores the resulting sheet under (owner, section, today's date).
func (s *Service) Take(ctx context.Context, owner, section string, img image.Image) (*Session, error) {
	sess, err := s.take(ctx, owner, section, img)
	s.metrics.SessionFinished(sessionResult(err))
	return sess, err
}

func (s *Service) take(ctx context.Context, owner, section string, img image.Image) (*Session, error) {
	start := time.Now()
	id := uuid.NewString()
	logger := s.logger.With("session_id", id, "owner", owner, "section", section)

	if section == "" {
		return nil, fmt.Errorf("%w: section is required", ErrMalformedInput)
	}

	clf, hit, err := s.Classifier(ctx, section)
	if err != nil {
		return nil, err
	}
	ledger := NewLedger(clf.Classes())

	scanCtx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()
	ident, err := s.matcher.IdentifyDetailed(scanCtx, img, clf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrScanTimeout, s.scanTimeout)
		}
		return nil, err
	}

	s.policy.Mark(ledger, ident.Identities)
	records := Format(ledger)

	now := s.now()
	sheet := &database.StoredSheet{
		Owner:     owner,
		Section:   section,
		Date:      now.Format(constants.DateLayout),
		Records:   ToStored(records),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.sheets != nil {
		if err := s.sheets.UpsertSheet(ctx, sheet); err != nil {
			return nil, fmt.Errorf("failed to store attendance sheet: %w", err)
		}
	}

	sess := &Session{
		ID:         id,
		Sheet:      sheet,
		Records:    records,
		Identified: ident.Identities,
		Boxes:      ident.Boxes,
		Skipped:    len(ident.Failures),
		CacheHit:   hit,
		Duration:   time.Since(start),
	}
	logger.Info("attendance taken",
		"present", sheet.Present(), "students", len(records),
		"boxes", ident.Boxes, "skipped_boxes", len(ident.Failures),
		"failed_quadrants", ident.ScanFailures, "cache_hit", hit,
		"duration", sess.Duration.Round(time.Millisecond))
	return sess, nil
}

func sessionResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrMissingSectionData):
		return resultNoData
	case errors.Is(err, ErrTrainingDataInsufficient):
		return resultTraining
	case errors.Is(err, ErrMalformedInput):
		return resultInput
	case errors.Is(err, ErrScanTimeout):
		return resultTimeout
	case errors.Is(err, ErrEmbeddingMismatch):
		return resultMismatch
	}
	return resultError
}

// ToStored converts formatted records to their persisted form.
func ToStored(records []Record) []database.StoredRecord {
	out := make([]database.StoredRecord, len(records))
	for i, r := range records {
		out[i] = database.StoredRecord{
			SerialNo: r.SerialNo,
			Name:     r.Name,
			RollNo:   r.RollNo,
			Status:   string(r.Status),
		}
	}
	return out
}

func (s *Service) requireStore() error {
	if s.sheets == nil {
		return errors.New("attendance store not configured")
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrMalformedInput, date)
	}
	return nil
}

// History lists the owner's sheets for a section, newest first.
func (s *Service) History(ctx context.Context, owner, section string, limit int) ([]database.SheetSummary, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	return s.sheets.ListSheets(ctx, owner, section, limit)
}

// Sheet returns one stored sheet.
func (s *Service) Sheet(ctx context.Context, owner, section, date string) (*database.StoredSheet, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	sheet, err := s.sheets.GetSheet(ctx, owner, section, date)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, section, date)
	}
	return sheet, nil
}

// UpdateStatuses applies manual corrections keyed by roll number and stores
// the sheet again. Roll numbers not on the sheet are ignored.
func (s *Service) UpdateStatuses(ctx context.Context, owner, section, date string, statuses map[string]string) (*database.StoredSheet, error) {
	sheet, err := s.Sheet(ctx, owner, section, date)
	if err != nil {
		return nil, err
	}

	parsed := make(map[string]Status, len(statuses))
	for roll, v := range statuses {
		st, err := ParseStatus(v)
		if err != nil {
			return nil, fmt.Errorf("roll number %s: %w", roll, err)
		}
		parsed[roll] = st
	}

	var changed int
	for i := range sheet.Records {
		st, ok := parsed[sheet.Records[i].RollNo]
		if !ok || Status(sheet.Records[i].Status) == st {
			continue
		}
		sheet.Records[i].Status = string(st)
		changed++
	}
	sheet.UpdatedAt = s.now()
	if err := s.sheets.UpsertSheet(ctx, sheet); err != nil {
		return nil, fmt.Errorf("failed to store attendance sheet: %w", err)
	}
	s.logger.Info("attendance corrected", "owner", owner, "section", section, "date", date, "changed", changed)
	return sheet, nil
}

// Find looks a student up on a stored sheet, ignoring case and diacritics.
func (s *Service) Find(ctx context.Context, owner, section, date, name string) (*database.StoredRecord, error) {
	sheet, err := s.Sheet(ctx, owner, section, date)
	if err != nil {
		return nil, err
	}
	for i := range sheet.Records {
		if facematch.SameStudent(sheet.Records[i].Name, name) {
			r := sheet.Records[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: no student %q on %s %s", ErrRecordNotFound, name, section, date)
}

// Sections lists enrolled sections.
func (s *Service) Sections(ctx context.Context) ([]database.SectionSummary, error) {
	return s.sections.ListSections(ctx)
}

// InvalidateSection drops cached classifiers of a section.
func (s *Service) InvalidateSection(section string) {
	if s.cache != nil {
		s.cache.Invalidate(section)
	}
}
