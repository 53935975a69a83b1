package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a StudioService client.
type Client struct {
	getStatus     *connect.Client[emptypb.Empty, structpb.Struct]
	playPause     *connect.Client[emptypb.Empty, structpb.Struct]
	stop          *connect.Client[emptypb.Empty, structpb.Struct]
	skipNext      *connect.Client[emptypb.Empty, structpb.Struct]
	skipPrevious  *connect.Client[emptypb.Empty, structpb.Struct]
	listChapters  *connect.Client[emptypb.Empty, structpb.Struct]
	selectChapter *connect.Client[wrapperspb.Int32Value, structpb.Struct]
	setRange      *connect.Client[structpb.Struct, structpb.Struct]
	setPosition   *connect.Client[wrapperspb.Int32Value, structpb.Struct]
	setRepeat     *connect.Client[wrapperspb.Int32Value, structpb.Struct]
	setVoice      *connect.Client[wrapperspb.StringValue, structpb.Struct]
	setLanguage   *connect.Client[wrapperspb.StringValue, structpb.Struct]
	setMode       *connect.Client[wrapperspb.StringValue, structpb.Struct]
	markVerse     *connect.Client[structpb.Struct, structpb.Struct]
	listMarks     *connect.Client[emptypb.Empty, structpb.Struct]
	saveSession   *connect.Client[wrapperspb.StringValue, structpb.Struct]
	loadSession   *connect.Client[wrapperspb.StringValue, structpb.Struct]
	deleteSession *connect.Client[wrapperspb.StringValue, structpb.Struct]
	listSessions  *connect.Client[emptypb.Empty, structpb.Struct]
	exportSession *connect.Client[wrapperspb.StringValue, structpb.Struct]
	importSession *connect.Client[wrapperspb.StringValue, structpb.Struct]
	shareSession  *connect.Client[emptypb.Empty, structpb.Struct]
	openShared    *connect.Client[wrapperspb.StringValue, structpb.Struct]
	subscribe     *connect.Client[wrapperspb.StringValue, structpb.Struct]
}

// NewClient creates a StudioService client for the server at baseURL that
// authenticates with token.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithInterceptors(&tokenInterceptor{token: token}))
	return &Client{
		getStatus:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStatusProcedure, opts...),
		playPause:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayPauseProcedure, opts...),
		stop:          connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+StopProcedure, opts...),
		skipNext:      connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SkipNextProcedure, opts...),
		skipPrevious:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SkipPreviousProcedure, opts...),
		listChapters:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListChaptersProcedure, opts...),
		selectChapter: connect.NewClient[wrapperspb.Int32Value, structpb.Struct](httpClient, baseURL+SelectChapterProcedure, opts...),
		setRange:      connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SetRangeProcedure, opts...),
		setPosition:   connect.NewClient[wrapperspb.Int32Value, structpb.Struct](httpClient, baseURL+SetPositionProcedure, opts...),
		setRepeat:     connect.NewClient[wrapperspb.Int32Value, structpb.Struct](httpClient, baseURL+SetRepeatProcedure, opts...),
		setVoice:      connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SetVoiceProcedure, opts...),
		setLanguage:   connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SetLanguageProcedure, opts...),
		setMode:       connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SetModeProcedure, opts...),
		markVerse:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+MarkVerseProcedure, opts...),
		listMarks:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListMarksProcedure, opts...),
		saveSession:   connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SaveSessionProcedure, opts...),
		loadSession:   connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+LoadSessionProcedure, opts...),
		deleteSession: connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+DeleteSessionProcedure, opts...),
		listSessions:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListSessionsProcedure, opts...),
		exportSession: connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+ExportSessionProcedure, opts...),
		importSession: connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+ImportSessionProcedure, opts...),
		shareSession:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ShareSessionProcedure, opts...),
		openShared:    connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+OpenSharedProcedure, opts...),
		subscribe:     connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

func unary[Req any](ctx context.Context, c *connect.Client[Req, structpb.Struct], msg *Req) (map[string]any, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}

// GetStatus returns the studio status fields.
func (c *Client) GetStatus(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.getStatus, &emptypb.Empty{})
}

// PlayPause toggles playback.
func (c *Client) PlayPause(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.playPause, &emptypb.Empty{})
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.stop, &emptypb.Empty{})
}

// SkipNext plays the next verse.
func (c *Client) SkipNext(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.skipNext, &emptypb.Empty{})
}

// SkipPrevious plays the previous verse.
func (c *Client) SkipPrevious(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.skipPrevious, &emptypb.Empty{})
}

// ListChapters returns the chapter index.
func (c *Client) ListChapters(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.listChapters, &emptypb.Empty{})
}

// SelectChapter opens a chapter.
func (c *Client) SelectChapter(ctx context.Context, chapter int) (map[string]any, error) {
	return unary(ctx, c.selectChapter, wrapperspb.Int32(int32(chapter)))
}

// SetRange replaces the verse range.
func (c *Client) SetRange(ctx context.Context, start, end int) (map[string]any, error) {
	msg, err := structpb.NewStruct(map[string]any{"start": start, "end": end})
	if err != nil {
		return nil, err
	}
	return unary(ctx, c.setRange, msg)
}

// SetPosition moves the current verse.
func (c *Client) SetPosition(ctx context.Context, verseNo int) (map[string]any, error) {
	return unary(ctx, c.setPosition, wrapperspb.Int32(int32(verseNo)))
}

// SetRepeat sets the repeat count.
func (c *Client) SetRepeat(ctx context.Context, count int) (map[string]any, error) {
	return unary(ctx, c.setRepeat, wrapperspb.Int32(int32(count)))
}

// SetVoice selects the reciter.
func (c *Client) SetVoice(ctx context.Context, reciter string) (map[string]any, error) {
	return unary(ctx, c.setVoice, wrapperspb.String(reciter))
}

// SetLanguage switches the translation language.
func (c *Client) SetLanguage(ctx context.Context, language string) (map[string]any, error) {
	return unary(ctx, c.setLanguage, wrapperspb.String(language))
}

// SetMode switches between student and teacher mode.
func (c *Client) SetMode(ctx context.Context, mode string) (map[string]any, error) {
	return unary(ctx, c.setMode, wrapperspb.String(mode))
}

// MarkVerse records a comment on a verse of the selected chapter.
func (c *Client) MarkVerse(ctx context.Context, verseNo int, comment string) (map[string]any, error) {
	msg, err := structpb.NewStruct(map[string]any{"verse": verseNo, "comment": comment})
	if err != nil {
		return nil, err
	}
	return unary(ctx, c.markVerse, msg)
}

// ListMarks returns all verse marks.
func (c *Client) ListMarks(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.listMarks, &emptypb.Empty{})
}

// SaveSession saves the current state under name.
func (c *Client) SaveSession(ctx context.Context, name string) (map[string]any, error) {
	return unary(ctx, c.saveSession, wrapperspb.String(name))
}

// LoadSession applies a saved session.
func (c *Client) LoadSession(ctx context.Context, name string) (map[string]any, error) {
	return unary(ctx, c.loadSession, wrapperspb.String(name))
}

// DeleteSession removes a saved session.
func (c *Client) DeleteSession(ctx context.Context, name string) (map[string]any, error) {
	return unary(ctx, c.deleteSession, wrapperspb.String(name))
}

// ListSessions lists saved sessions.
func (c *Client) ListSessions(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.listSessions, &emptypb.Empty{})
}

// ExportSession exports a saved session, or the current state when name is empty.
func (c *Client) ExportSession(ctx context.Context, name string) (map[string]any, error) {
	return unary(ctx, c.exportSession, wrapperspb.String(name))
}

// ImportSession stores an exported session.
func (c *Client) ImportSession(ctx context.Context, payload string) (map[string]any, error) {
	return unary(ctx, c.importSession, wrapperspb.String(payload))
}

// ShareSession returns a share link for the current state.
func (c *Client) ShareSession(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.shareSession, &emptypb.Empty{})
}

// OpenShared applies the session embedded in a share link.
func (c *Client) OpenShared(ctx context.Context, link string) (map[string]any, error) {
	return unary(ctx, c.openShared, wrapperspb.String(link))
}

// Subscribe calls fn for every notification until ctx is done or the stream ends.
// types limits the stream to the named notification types; empty means all.
func (c *Client) Subscribe(ctx context.Context, types []string, fn func(map[string]any)) error {
	req := connect.NewRequest(wrapperspb.String(strings.Join(types, ",")))
	stream, err := c.subscribe.CallServerStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		fn(stream.Msg().AsMap())
	}
	return stream.Err()
}
