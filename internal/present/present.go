package present

import (
	"github.com/angelmondragon/storefront-client/pkg/enums"
)

// Well-known navigation targets.
const (
	PathLogin    = "/auth/login"
	PathCheckout = "/checkout"
	PathOrders   = "/orders"
	PathHome     = "/"
)

// Notice is a transient, user-facing message.
type Notice struct {
	Level   enums.NoticeLevel
	Message string
}

// Notifier surfaces notices to the shopper.
type Notifier interface {
	Notify(Notice)
}

// Navigation is a requested route change. ReturnTo is where the shopper should
// land after completing the target flow (e.g. login), if anywhere.
type Navigation struct {
	Path     string
	ReturnTo string
}

// Navigator changes the current route.
type Navigator interface {
	Navigate(Navigation)
	CurrentPath() string
}

// Error, Info and Success are shorthands for building notices.
func Error(msg string) Notice   { return Notice{Level: enums.NoticeError, Message: msg} }
func Info(msg string) Notice    { return Notice{Level: enums.NoticeInfo, Message: msg} }
func Success(msg string) Notice { return Notice{Level: enums.NoticeSuccess, Message: msg} }
func Warning(msg string) Notice { return Notice{Level: enums.NoticeWarning, Message: msg} }
