package present

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// Console prints notices for a terminal shopper and logs navigations.
type Console struct {
	out  io.Writer
	logg *logger.Logger

	mu      sync.Mutex
	current string
}

func NewConsole(out io.Writer, logg *logger.Logger) *Console {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Console{out: out, logg: logg, current: PathHome}
}

func (c *Console) Notify(n Notice) {
	prefix := "info"
	switch n.Level {
	case enums.NoticeError:
		prefix = "error"
	case enums.NoticeWarning:
		prefix = "warning"
	case enums.NoticeSuccess:
		prefix = "ok"
	}
	fmt.Fprintf(c.out, "[%s] %s\n", prefix, n.Message)
}

func (c *Console) Navigate(nav Navigation) {
	c.mu.Lock()
	c.current = nav.Path
	c.mu.Unlock()

	ctx := c.logg.WithFields(context.Background(), map[string]any{"path": nav.Path, "return_to": nav.ReturnTo})
	c.logg.Debug(ctx, "present.navigate")
	if nav.Path == PathLogin {
		fmt.Fprintln(c.out, "please log in: shop login -email <email>")
	}
}

func (c *Console) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
