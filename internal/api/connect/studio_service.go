package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/hifzbox/internal/app/notification"
	"github.com/osa030/hifzbox/internal/app/studio"
	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
	"github.com/osa030/hifzbox/internal/infra/config"
	"github.com/osa030/hifzbox/internal/infra/store"
)

// Studio is the application surface exposed over RPC.
type Studio interface {
	Status() *studio.Status
	PlayPause() error
	Stop() error
	SkipNext() error
	SkipPrevious() error
	Chapters(ctx context.Context) []verse.Chapter
	SelectChapter(ctx context.Context, id int) error
	SetRange(start, end int) error
	SetPosition(item int) error
	SetRepeat(count int) error
	SetVoice(name string) error
	SetLanguage(ctx context.Context, language string) error
	SetMode(mode session.Mode) error
	MarkVerse(ctx context.Context, verseNo int, comment string) error
	Marks() session.Marks
	SaveSession(ctx context.Context, name string) (*store.Summary, error)
	LoadSession(ctx context.Context, name string) (*session.Data, error)
	DeleteSession(ctx context.Context, name string) error
	ListSessions(ctx context.Context) ([]store.Summary, error)
	ExportSession(ctx context.Context, name string) (string, error)
	ImportSession(ctx context.Context, payload string) (*store.Summary, error)
	ShareSession(ctx context.Context) (string, error)
	OpenShared(ctx context.Context, link string) (*session.Data, error)
	Subscribe(stream notification.Stream, types ...notification.Type) string
	Unsubscribe(id string)
	Done() <-chan struct{}
}

// StudioService implements the StudioService RPC.
type StudioService struct {
	studio Studio
	config *config.Config
}

// NewStudioService creates a new StudioService.
func NewStudioService(studio Studio, cfg *config.Config) *StudioService {
	return &StudioService{
		studio: studio,
		config: cfg,
	}
}

type (
	structResponse = connect.Response[structpb.Struct]
	emptyRequest   = connect.Request[emptypb.Empty]
	intRequest     = connect.Request[wrapperspb.Int32Value]
	stringRequest  = connect.Request[wrapperspb.StringValue]
	structRequest  = connect.Request[structpb.Struct]
)

// NewStudioServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewStudioServiceHandler(svc *StudioService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(PlayPauseProcedure, connect.NewUnaryHandler(PlayPauseProcedure, svc.PlayPause, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, svc.Stop, opts...))
	mux.Handle(SkipNextProcedure, connect.NewUnaryHandler(SkipNextProcedure, svc.SkipNext, opts...))
	mux.Handle(SkipPreviousProcedure, connect.NewUnaryHandler(SkipPreviousProcedure, svc.SkipPrevious, opts...))
	mux.Handle(ListChaptersProcedure, connect.NewUnaryHandler(ListChaptersProcedure, svc.ListChapters, opts...))
	mux.Handle(SelectChapterProcedure, connect.NewUnaryHandler(SelectChapterProcedure, svc.SelectChapter, opts...))
	mux.Handle(SetRangeProcedure, connect.NewUnaryHandler(SetRangeProcedure, svc.SetRange, opts...))
	mux.Handle(SetPositionProcedure, connect.NewUnaryHandler(SetPositionProcedure, svc.SetPosition, opts...))
	mux.Handle(SetRepeatProcedure, connect.NewUnaryHandler(SetRepeatProcedure, svc.SetRepeat, opts...))
	mux.Handle(SetVoiceProcedure, connect.NewUnaryHandler(SetVoiceProcedure, svc.SetVoice, opts...))
	mux.Handle(SetLanguageProcedure, connect.NewUnaryHandler(SetLanguageProcedure, svc.SetLanguage, opts...))
	mux.Handle(SetModeProcedure, connect.NewUnaryHandler(SetModeProcedure, svc.SetMode, opts...))
	mux.Handle(MarkVerseProcedure, connect.NewUnaryHandler(MarkVerseProcedure, svc.MarkVerse, opts...))
	mux.Handle(ListMarksProcedure, connect.NewUnaryHandler(ListMarksProcedure, svc.ListMarks, opts...))
	mux.Handle(SaveSessionProcedure, connect.NewUnaryHandler(SaveSessionProcedure, svc.SaveSession, opts...))
	mux.Handle(LoadSessionProcedure, connect.NewUnaryHandler(LoadSessionProcedure, svc.LoadSession, opts...))
	mux.Handle(DeleteSessionProcedure, connect.NewUnaryHandler(DeleteSessionProcedure, svc.DeleteSession, opts...))
	mux.Handle(ListSessionsProcedure, connect.NewUnaryHandler(ListSessionsProcedure, svc.ListSessions, opts...))
	mux.Handle(ExportSessionProcedure, connect.NewUnaryHandler(ExportSessionProcedure, svc.ExportSession, opts...))
	mux.Handle(ImportSessionProcedure, connect.NewUnaryHandler(ImportSessionProcedure, svc.ImportSession, opts...))
	mux.Handle(ShareSessionProcedure, connect.NewUnaryHandler(ShareSessionProcedure, svc.ShareSession, opts...))
	mux.Handle(OpenSharedProcedure, connect.NewUnaryHandler(OpenSharedProcedure, svc.OpenShared, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, svc.Subscribe, opts...))
	return "/" + StudioServiceName + "/", mux
}

// respond reports err as a connect error when it is the caller's fault and
// in the response body otherwise. The current status is always attached.
func (s *StudioService) respond(message string, err error, extra map[string]any) (*structResponse, error) {
	if err != nil {
		if cerr := toConnectError(err); cerr != nil {
			return nil, cerr
		}
		zlog.Debug().Msgf("studio command failed: %v", err)
	}

	fields := resultFields(message, err)
	for k, v := range extra {
		fields[k] = v
	}
	fields["status"] = s.studio.Status().Fields()

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode response"))
	}
	return connect.NewResponse(msg), nil
}

// GetStatus returns the current studio status.
func (s *StudioService) GetStatus(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	msg, err := structpb.NewStruct(s.studio.Status().Fields())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// PlayPause toggles playback.
func (s *StudioService) PlayPause(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	return s.respond("Playback toggled", s.studio.PlayPause(), nil)
}

// Stop stops playback.
func (s *StudioService) Stop(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	return s.respond("Playback stopped", s.studio.Stop(), nil)
}

// SkipNext plays the next verse.
func (s *StudioService) SkipNext(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	return s.respond("Skipped to next verse", s.studio.SkipNext(), nil)
}

// SkipPrevious plays the previous verse.
func (s *StudioService) SkipPrevious(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	return s.respond("Skipped to previous verse", s.studio.SkipPrevious(), nil)
}

// ListChapters returns the chapter index.
func (s *StudioService) ListChapters(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	chapters := s.studio.Chapters(ctx)
	list := make([]any, len(chapters))
	for i, ch := range chapters {
		list[i] = chapterMap(ch)
	}
	msg, err := structpb.NewStruct(map[string]any{"chapters": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SelectChapter opens a chapter.
func (s *StudioService) SelectChapter(ctx context.Context, req *intRequest) (*structResponse, error) {
	return s.respond("Chapter selected", s.studio.SelectChapter(ctx, int(req.Msg.GetValue())), nil)
}

// SetRange replaces the verse range. The request carries "start" and "end".
func (s *StudioService) SetRange(ctx context.Context, req *structRequest) (*structResponse, error) {
	start, okStart := intField(req.Msg, "start")
	end, okEnd := intField(req.Msg, "end")
	if !okStart || !okEnd {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("start and end are required"))
	}
	return s.respond("Range updated", s.studio.SetRange(start, end), nil)
}

// SetPosition moves the current verse.
func (s *StudioService) SetPosition(ctx context.Context, req *intRequest) (*structResponse, error) {
	return s.respond("Position updated", s.studio.SetPosition(int(req.Msg.GetValue())), nil)
}

// SetRepeat sets the repeat count.
func (s *StudioService) SetRepeat(ctx context.Context, req *intRequest) (*structResponse, error) {
	return s.respond("Repeat updated", s.studio.SetRepeat(int(req.Msg.GetValue())), nil)
}

// SetVoice selects the reciter.
func (s *StudioService) SetVoice(ctx context.Context, req *stringRequest) (*structResponse, error) {
	return s.respond("Reciter updated", s.studio.SetVoice(req.Msg.GetValue()), nil)
}

// SetLanguage switches the translation language.
func (s *StudioService) SetLanguage(ctx context.Context, req *stringRequest) (*structResponse, error) {
	return s.respond("Language updated", s.studio.SetLanguage(ctx, req.Msg.GetValue()), nil)
}

// SetMode switches between student and teacher mode.
func (s *StudioService) SetMode(ctx context.Context, req *stringRequest) (*structResponse, error) {
	return s.respond("Mode updated", s.studio.SetMode(session.Mode(req.Msg.GetValue())), nil)
}

// MarkVerse records a comment on a verse. The request carries "verse" and "comment".
func (s *StudioService) MarkVerse(ctx context.Context, req *structRequest) (*structResponse, error) {
	verseNo, ok := intField(req.Msg, "verse")
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("verse is required"))
	}
	comment := req.Msg.GetFields()["comment"].GetStringValue()
	return s.respond("Verse marked", s.studio.MarkVerse(ctx, verseNo, comment), nil)
}

// ListMarks returns all verse marks keyed by chapter and verse.
func (s *StudioService) ListMarks(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	msg, err := structpb.NewStruct(map[string]any{"marks": marksMap(s.studio.Marks())})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SaveSession saves the current state under a name.
func (s *StudioService) SaveSession(ctx context.Context, req *stringRequest) (*structResponse, error) {
	sum, err := s.studio.SaveSession(ctx, req.Msg.GetValue())
	var extra map[string]any
	if sum != nil {
		extra = map[string]any{"session": summaryMap(*sum)}
	}
	return s.respond("Session saved", err, extra)
}

// LoadSession applies a saved session.
func (s *StudioService) LoadSession(ctx context.Context, req *stringRequest) (*structResponse, error) {
	_, err := s.studio.LoadSession(ctx, req.Msg.GetValue())
	return s.respond("Session loaded", err, nil)
}

// DeleteSession removes a saved session.
func (s *StudioService) DeleteSession(ctx context.Context, req *stringRequest) (*structResponse, error) {
	return s.respond("Session deleted", s.studio.DeleteSession(ctx, req.Msg.GetValue()), nil)
}

// ListSessions lists saved sessions.
func (s *StudioService) ListSessions(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	sums, err := s.studio.ListSessions(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	list := make([]any, len(sums))
	for i, sum := range sums {
		list[i] = summaryMap(sum)
	}
	msg, err := structpb.NewStruct(map[string]any{"sessions": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// ExportSession returns a session as JSON. An empty name exports the current state.
func (s *StudioService) ExportSession(ctx context.Context, req *stringRequest) (*structResponse, error) {
	payload, err := s.studio.ExportSession(ctx, req.Msg.GetValue())
	return s.respond("Session exported", err, map[string]any{"payload": payload})
}

// ImportSession stores an exported session.
func (s *StudioService) ImportSession(ctx context.Context, req *stringRequest) (*structResponse, error) {
	sum, err := s.studio.ImportSession(ctx, req.Msg.GetValue())
	var extra map[string]any
	if sum != nil {
		extra = map[string]any{"session": summaryMap(*sum)}
	}
	return s.respond("Session imported", err, extra)
}

// ShareSession returns a share link for the current state.
func (s *StudioService) ShareSession(ctx context.Context, req *emptyRequest) (*structResponse, error) {
	link, err := s.studio.ShareSession(ctx)
	return s.respond("Share link created", err, map[string]any{"url": link})
}

// OpenShared applies the session embedded in a share link.
func (s *StudioService) OpenShared(ctx context.Context, req *stringRequest) (*structResponse, error) {
	_, err := s.studio.OpenShared(ctx, req.Msg.GetValue())
	return s.respond("Shared session opened", err, nil)
}

// Subscribe streams notifications until the client disconnects or the studio closes.
// The request optionally lists notification types, comma separated.
// The first message is the current status.
func (s *StudioService) Subscribe(
	ctx context.Context,
	req *stringRequest,
	stream *connect.ServerStream[structpb.Struct],
) error {
	types, err := notification.ParseTypes(req.Msg.GetValue())
	if err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.studio.Subscribe(adapter, types...)

	// Wait for context cancellation or studio shutdown
	select {
	case <-ctx.Done():
	case <-s.studio.Done():
	}

	// Unsubscribe when done
	s.studio.Unsubscribe(subscriptionID)

	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Broadcasts may overlap, so sends are serialized.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	msg, err := notificationStruct(n)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}
