package enums

// NoticeLevel classifies a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// String implements fmt.Stringer.
func (n NoticeLevel) String() string {
	return string(n)
}
