// Package connect provides Connect RPC service implementations.
package connect

// StudioServiceName is the fully-qualified name of the StudioService service.
const StudioServiceName = "hifzbox.v1.StudioService"

// Fully-qualified procedure names of StudioService.
const (
	GetStatusProcedure     = "/" + StudioServiceName + "/GetStatus"
	PlayPauseProcedure     = "/" + StudioServiceName + "/PlayPause"
	StopProcedure          = "/" + StudioServiceName + "/Stop"
	SkipNextProcedure      = "/" + StudioServiceName + "/SkipNext"
	SkipPreviousProcedure  = "/" + StudioServiceName + "/SkipPrevious"
	ListChaptersProcedure  = "/" + StudioServiceName + "/ListChapters"
	SelectChapterProcedure = "/" + StudioServiceName + "/SelectChapter"
	SetRangeProcedure      = "/" + StudioServiceName + "/SetRange"
	SetPositionProcedure   = "/" + StudioServiceName + "/SetPosition"
	SetRepeatProcedure     = "/" + StudioServiceName + "/SetRepeat"
	SetVoiceProcedure      = "/" + StudioServiceName + "/SetVoice"
	SetLanguageProcedure   = "/" + StudioServiceName + "/SetLanguage"
	SetModeProcedure       = "/" + StudioServiceName + "/SetMode"
	MarkVerseProcedure     = "/" + StudioServiceName + "/MarkVerse"
	ListMarksProcedure     = "/" + StudioServiceName + "/ListMarks"
	SaveSessionProcedure   = "/" + StudioServiceName + "/SaveSession"
	LoadSessionProcedure   = "/" + StudioServiceName + "/LoadSession"
	DeleteSessionProcedure = "/" + StudioServiceName + "/DeleteSession"
	ListSessionsProcedure  = "/" + StudioServiceName + "/ListSessions"
	ExportSessionProcedure = "/" + StudioServiceName + "/ExportSession"
	ImportSessionProcedure = "/" + StudioServiceName + "/ImportSession"
	ShareSessionProcedure  = "/" + StudioServiceName + "/ShareSession"
	OpenSharedProcedure    = "/" + StudioServiceName + "/OpenShared"
	SubscribeProcedure     = "/" + StudioServiceName + "/Subscribe"
)
