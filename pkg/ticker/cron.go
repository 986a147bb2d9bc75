package ticker

import (
	"github.com/robfig/cron/v3"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Cron notifies its node on a cron schedule. Specs accept the standard
// five fields plus an optional leading seconds field and descriptors like
// @hourly.
type Cron struct {
	n      *beacon.Notifier
	c      *cron.Cron
	parser cron.Parser
}

// NewCron creates a stopped cron pulse around a fresh notifier.
func NewCron(opts ...beacon.Option) *Cron {
	return &Cron{
		n: beacon.New(opts...),
		parser: cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Notifier returns the underlying node.
func (c *Cron) Notifier() *beacon.Notifier { return c.n }

// Add registers a schedule spec; every firing runs one notification
// round. Returns the cron entry ID so the schedule can be removed.
func (c *Cron) Add(spec string) (cron.EntryID, error) {
	sched, err := c.parser.Parse(spec)
	if err != nil {
		return 0, err
	}
	c.ensure()
	return c.c.Schedule(sched, cron.FuncJob(func() {
		_ = c.n.Notify()
	})), nil
}

// Remove drops a previously added schedule.
func (c *Cron) Remove(id cron.EntryID) {
	if c.c != nil {
		c.c.Remove(id)
	}
}

// Start begins evaluating schedules.
func (c *Cron) Start() {
	c.ensure()
	c.c.Start()
}

// Stop halts schedule evaluation; a running round is not interrupted.
func (c *Cron) Stop() {
	if c.c != nil {
		c.c.Stop()
	}
}

// Close stops the scheduler and disposes the node.
func (c *Cron) Close() {
	c.Stop()
	c.n.Dispose()
}

func (c *Cron) ensure() {
	if c.c == nil {
		c.c = cron.New(cron.WithParser(c.parser))
	}
}
