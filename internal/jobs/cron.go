package job

import (
	"fmt"
	"time"

	"github.com/robfig/cron"
)

// Entry is one periodic job.
type Entry struct {
	Name string
	Spec string
	Run  func()
}

// NewCron builds a cron runner in the business location with every entry registered.
// Specs use the six-field form with seconds, or descriptors such as "@every 15m".
func NewCron(loc *time.Location, entries ...Entry) (*cron.Cron, error) {
	c := cron.NewWithLocation(loc)
	for _, e := range entries {
		if err := c.AddFunc(e.Spec, e.Run); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s job: %w", e.Spec, e.Name, err)
		}
	}
	return c, nil
}
