package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixelpress/internal/config"
	"pixelpress/internal/fileutil"
	"pixelpress/internal/imaging"
	"pixelpress/internal/jobstore"
	"pixelpress/internal/logging"
	"pixelpress/internal/notifications"
	"pixelpress/internal/services"
)

// ExportFileName is the base name of exported images; the extension is
// the chosen format's canonical extension.
const ExportFileName = "converted_image"

// Store is the persistence surface the session needs: append one
// completed job.
type Store interface {
	Persist(ctx context.Context, job *jobstore.Job) (string, error)
}

// Session coordinates the conversion workflow. All state lives on the
// run loop goroutine; see the package documentation.
type Session struct {
	id       string
	encoder  imaging.Encoder
	store    Store
	notifier notifications.Service
	logger   *slog.Logger

	defaultFormat  imaging.Format
	defaultQuality float64
	encodeTimeout  time.Duration

	cmds      chan command
	done      chan struct{}
	cancelRun context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// sessionState is the loop-owned mutable state. Only run touches it.
type sessionState struct {
	state         State
	original      []byte
	converted     []byte
	encodedFormat imaging.Format
	fallback      bool
	jobID         string
	format        imaging.Format
	formatChosen  bool
	quality       float64
	qualityChosen bool

	// gen invalidates in-flight encodes; cancelEncode stops the worker.
	gen          uint64
	cancelEncode context.CancelFunc
}

// New constructs a session and starts its run loop. Close releases it.
func New(cfg *config.Config, encoder imaging.Encoder, store Store, notifier notifications.Service, logger *slog.Logger) *Session {
	defaultFormat, ok := imaging.ParseFormat(cfg.Conversion.DefaultFormat)
	if !ok {
		defaultFormat = imaging.FormatJPEG
	}

	s := &Session{
		id:             uuid.NewString(),
		encoder:        encoder,
		store:          store,
		notifier:       notifier,
		defaultFormat:  defaultFormat,
		defaultQuality: cfg.Conversion.DefaultQuality,
		encodeTimeout:  time.Duration(cfg.Conversion.EncodeTimeout) * time.Second,
		cmds:           make(chan command),
		done:           make(chan struct{}),
	}
	s.logger = logging.NewComponentLogger(logger, "session").With(
		logging.String(logging.FieldSessionID, s.id),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.wg.Add(1)
	go s.run(runCtx)

	return s
}

// ID returns the session identifier used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Close stops the run loop and cancels any outstanding encode. It is
// idempotent and safe to call concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelRun()
		s.wg.Wait()
		close(s.done)
	})
}

// LoadPhoto delivers raw image bytes to an idle session. Undecodable
// bytes are surfaced immediately and the session stays Idle.
func (s *Session) LoadPhoto(ctx context.Context, raw []byte) error {
	reply := make(chan error, 1)
	return s.postErr(ctx, loadPhotoCmd{raw: raw, reply: reply}, reply)
}

// ChooseFormat records the output format while selecting.
func (s *Session) ChooseFormat(ctx context.Context, format imaging.Format) error {
	reply := make(chan error, 1)
	return s.postErr(ctx, chooseFormatCmd{format: format, reply: reply}, reply)
}

// ChooseQuality records the quality factor while selecting.
func (s *Session) ChooseQuality(ctx context.Context, quality float64) error {
	reply := make(chan error, 1)
	return s.postErr(ctx, chooseQualityCmd{quality: quality, reply: reply}, reply)
}

// StartConversion launches the asynchronous encode. At most one encode
// is in flight; a second start while converting is rejected.
func (s *Session) StartConversion(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.postErr(ctx, startConversionCmd{reply: reply}, reply)
}

// Reset returns the session to Idle, cancelling any outstanding encode
// first and discarding the image, job draft, format, and quality.
func (s *Session) Reset(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.postErr(ctx, resetCmd{reply: reply}, reply)
}

// Snapshot returns a read-only view of the current session state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.post(ctx, snapshotCmd{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrClosed
	}
}

// Export writes the converted bytes to dir as converted_image.<ext> and
// returns the written path. Only a completed session can export.
func (s *Session) Export(ctx context.Context, dir string) (string, error) {
	reply := make(chan exportReply, 1)
	if err := s.post(ctx, exportCmd{dir: dir, reply: reply}); err != nil {
		return "", err
	}
	select {
	case res := <-reply:
		return res.path, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrClosed
	}
}

func (s *Session) post(ctx context.Context, cmd command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) postErr(ctx context.Context, cmd command, reply chan error) error {
	if err := s.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	st := &sessionState{
		state:   State{Kind: StateIdle},
		format:  s.defaultFormat,
		quality: s.defaultQuality,
	}
	defer func() {
		if st.cancelEncode != nil {
			st.cancelEncode()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			s.apply(ctx, st, cmd)
		}
	}
}

func (s *Session) apply(ctx context.Context, st *sessionState, cmd command) {
	switch c := cmd.(type) {
	case loadPhotoCmd:
		c.reply <- s.applyLoadPhoto(st, c.raw)
	case chooseFormatCmd:
		c.reply <- s.applyChooseFormat(st, c.format)
	case chooseQualityCmd:
		c.reply <- s.applyChooseQuality(st, c.quality)
	case startConversionCmd:
		c.reply <- s.applyStartConversion(ctx, st)
	case resetCmd:
		c.reply <- s.applyReset(st)
	case snapshotCmd:
		c.reply <- s.snapshot(st)
	case exportCmd:
		path, err := s.applyExport(st, c.dir)
		c.reply <- exportReply{path: path, err: err}
	case encodeDoneMsg:
		s.applyEncodeDone(ctx, st, c)
	}
}

func (s *Session) applyLoadPhoto(st *sessionState, raw []byte) error {
	if st.state.Kind != StateIdle {
		return rejectf("photo_loaded not accepted in state %s", st.state.Kind)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return services.Wrap(services.ErrValidation, "session", "load_photo", "image bytes undecodable", err)
	}

	st.original = append([]byte(nil), raw...)
	st.state = State{Kind: StateSelecting}
	s.logger.Info("photo loaded",
		logging.String(logging.FieldEventType, "photo_loaded"),
		logging.Int("input_bytes", len(raw)),
	)
	return nil
}

func (s *Session) applyChooseFormat(st *sessionState, format imaging.Format) error {
	if st.state.Kind != StateSelecting {
		return rejectf("format_chosen not accepted in state %s", st.state.Kind)
	}
	if format.Extension() == "" {
		return services.Wrap(services.ErrValidation, "session", "choose_format", "unknown format", nil)
	}

	st.format = format
	st.formatChosen = true
	s.logger.Info("format chosen",
		logging.String(logging.FieldEventType, "format_chosen"),
		logging.String(logging.FieldFormat, string(format)),
	)
	return nil
}

func (s *Session) applyChooseQuality(st *sessionState, quality float64) error {
	if st.state.Kind != StateSelecting {
		return rejectf("quality_chosen not accepted in state %s", st.state.Kind)
	}
	if quality < 0 || quality > 1 {
		return services.Wrap(services.ErrValidation, "session", "choose_quality", "quality must be in [0, 1]", nil)
	}

	st.quality = quality
	st.qualityChosen = true
	s.logger.Info("quality chosen",
		logging.String(logging.FieldEventType, "quality_chosen"),
		logging.Float64("quality", quality),
	)
	return nil
}

func (s *Session) applyStartConversion(ctx context.Context, st *sessionState) error {
	switch st.state.Kind {
	case StateConverting:
		// At most one in-flight encode per session.
		return rejectf("conversion already in progress")
	case StateSelecting:
	default:
		return rejectf("start_conversion not accepted in state %s", st.state.Kind)
	}
	if len(st.original) == 0 {
		return rejectf("no image loaded")
	}
	if !st.formatChosen || !st.qualityChosen {
		return rejectf("format and quality must be chosen before converting")
	}

	st.gen++
	st.state = State{Kind: StateConverting}

	var workerCtx context.Context
	var cancel context.CancelFunc
	if s.encodeTimeout > 0 {
		workerCtx, cancel = context.WithTimeout(ctx, s.encodeTimeout)
	} else {
		workerCtx, cancel = context.WithCancel(ctx)
	}
	st.cancelEncode = cancel

	gen := st.gen
	raw := st.original
	format := st.format
	quality := st.quality

	s.logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_started"),
		logging.String(logging.FieldFormat, string(format)),
		logging.Float64("quality", quality),
	)

	go s.encode(ctx, workerCtx, gen, raw, format, quality)
	return nil
}

// encode runs off the owner loop. It reports back through the command
// channel only; it never touches session state directly.
func (s *Session) encode(runCtx, workerCtx context.Context, gen uint64, raw []byte, format imaging.Format, quality float64) {
	msg := encodeDoneMsg{gen: gen}

	result, err := s.encoder.Encode(workerCtx, raw, format, quality)
	if err == nil {
		msg.result = result
		// Archival near-lossless copy of the original, independent of the
		// chosen quality, stored alongside the converted output.
		archival, archErr := s.encoder.Encode(workerCtx, raw, imaging.FormatJPEG, 1.0)
		if archErr != nil {
			err = archErr
		} else {
			msg.archival = archival.Bytes
		}
	}
	// An expired deadline bounds the conversion even when the encoder
	// ignored it and returned late.
	if ctxErr := workerCtx.Err(); ctxErr != nil {
		err = ctxErr
	}
	msg.err = err

	select {
	case s.cmds <- msg:
	case <-runCtx.Done():
	}
}

func (s *Session) applyEncodeDone(ctx context.Context, st *sessionState, msg encodeDoneMsg) {
	if msg.gen != st.gen || st.state.Kind != StateConverting {
		// Late completion from a cancelled or superseded encode.
		s.logger.Debug("stale encode result discarded",
			logging.String(logging.FieldEventType, "encode_discarded"),
		)
		return
	}
	if st.cancelEncode != nil {
		st.cancelEncode()
		st.cancelEncode = nil
	}

	if msg.err != nil {
		s.fail(ctx, st, failureFor(msg.err), msg.err)
		return
	}

	job := &jobstore.Job{
		OriginalBytes:   msg.archival,
		ConvertedBytes:  msg.result.Bytes,
		RequestedFormat: msg.result.Requested,
		EncodedFormat:   msg.result.Encoded,
		Fallback:        msg.result.Fallback,
		Quality:         st.quality,
		CreatedAt:       time.Now().UTC(),
		Completed:       true,
	}
	jobID, err := s.store.Persist(ctx, job.Clone())
	if err != nil {
		s.fail(ctx, st, FailurePersistence, err)
		return
	}

	st.converted = msg.result.Bytes
	st.encodedFormat = msg.result.Encoded
	st.fallback = msg.result.Fallback
	st.jobID = jobID
	st.state = State{Kind: StateCompleted}

	s.logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_completed"),
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldFormat, string(msg.result.Requested)),
		logging.Bool("fallback", msg.result.Fallback),
		logging.Int("output_bytes", len(msg.result.Bytes)),
	)
	if s.notifier != nil {
		if err := s.notifier.NotifyConversionCompleted(ctx, string(msg.result.Requested), len(msg.result.Bytes)); err != nil {
			s.logger.Debug("completion notification failed", logging.Error(err))
		}
	}
}

func (s *Session) fail(ctx context.Context, st *sessionState, code FailureCode, cause error) {
	st.state = State{Kind: StateFailed, Failure: code}
	s.logger.Error("conversion failed",
		logging.String(logging.FieldEventType, "conversion_failed"),
		logging.String("failure_code", string(code)),
		logging.Error(cause),
	)
	if s.notifier != nil {
		if err := s.notifier.NotifyConversionFailed(ctx, string(code)); err != nil {
			s.logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

func failureFor(err error) FailureCode {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureEncodeTimeout
	case imaging.CodeOf(err) == imaging.ErrorCodeUnsupportedInput:
		return FailureUnsupportedInput
	default:
		return FailureEncodingFailed
	}
}

func (s *Session) applyReset(st *sessionState) error {
	switch st.state.Kind {
	case StateCompleted, StateFailed, StateConverting:
	default:
		return rejectf("reset not accepted in state %s", st.state.Kind)
	}

	if st.state.Kind == StateConverting && st.cancelEncode != nil {
		st.cancelEncode()
		s.logger.Info("outstanding encode cancelled",
			logging.String(logging.FieldEventType, "encode_cancelled"),
		)
	}
	st.cancelEncode = nil
	st.gen++

	st.state = State{Kind: StateIdle}
	st.original = nil
	st.converted = nil
	st.encodedFormat = ""
	st.fallback = false
	st.jobID = ""
	st.format = s.defaultFormat
	st.formatChosen = false
	st.quality = s.defaultQuality
	st.qualityChosen = false

	s.logger.Info("session reset",
		logging.String(logging.FieldEventType, "session_reset"),
	)
	return nil
}

func (s *Session) applyExport(st *sessionState, dir string) (string, error) {
	if st.state.Kind != StateCompleted {
		return "", rejectf("export not accepted in state %s", st.state.Kind)
	}

	path := filepath.Join(dir, ExportFileName+"."+st.format.Extension())
	if err := fileutil.WriteAtomic(path, st.converted, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "session", "export", "write converted image", err)
	}

	s.logger.Info("converted image exported",
		logging.String(logging.FieldEventType, "export_completed"),
		logging.String("path", path),
	)
	return path, nil
}

func (s *Session) snapshot(st *sessionState) Snapshot {
	return Snapshot{
		State:          st.state,
		HasImage:       len(st.original) > 0,
		Format:         st.format,
		FormatChosen:   st.formatChosen,
		Quality:        st.quality,
		QualityChosen:  st.qualityChosen,
		ConvertedBytes: append([]byte(nil), st.converted...),
		EncodedFormat:  st.encodedFormat,
		Fallback:       st.fallback,
		JobID:          st.jobID,
	}
}
