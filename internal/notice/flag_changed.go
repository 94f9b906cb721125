package notice

// FlagChangedNoticeType is the notice type the streaming pipeline uses
// when a flag's stored definition is visibly applied via init or upsert.
// The broadcaster treats it as an opaque sink target: nothing in this SDK
// subscribes a convenience listener/tracker layer to it — callers that want
// that behavior register their own Listener via Broadcaster.AddListener.
const FlagChangedNoticeType = "flag_change_notice"

// FlagChangedNotice names the flag whose configuration changed.
type FlagChangedNotice struct {
	FlagKey string
}

// NoticeType implements Notice.
func (FlagChangedNotice) NoticeType() string { return FlagChangedNoticeType }
