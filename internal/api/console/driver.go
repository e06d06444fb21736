package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/service/reward"
	"go.uber.org/zap"
)

const helpText = `commands:
  avail <category>              show availability of a category
  request <category> [context]  request a fulfillment
  status                        show all categories
  suspend                       persist today counts
  help                          show this message
  quit                          stop reading commands`

// RewardService 命令行用到的奖励服务能力。
type RewardService interface {
	Status(c domain.Category) domain.Status
	TimeUntilAvailable(c domain.Category) time.Duration
	UsedToday(c domain.Category) int
	RemainingToday(c domain.Category) int
	RequestFulfillment(c domain.Category, contextKey string) string
	Subscribe(l reward.Listener) func()
	Suspend(ctx context.Context)
}

var _ RewardService = (*reward.Service)(nil)

// Driver 从输入逐行读取命令驱动奖励服务，通知与结果写到输出。
type Driver struct {
	mu  sync.Mutex
	svc RewardService
	in  io.Reader
	out io.Writer

	logger *zap.Logger
}

// Run 读到 EOF 或 quit 时返回。
func (d *Driver) Run(ctx context.Context) error {
	cancel := d.svc.Subscribe(d.onEvent)
	defer cancel()

	scanner := bufio.NewScanner(d.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if !d.exec(ctx, scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// exec 执行一条命令，返回 false 表示退出。
func (d *Driver) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "avail":
		if len(args) != 1 {
			d.printf("usage: avail <category>")
			return true
		}
		d.avail(domain.Category(args[0]))
	case "request":
		if len(args) < 1 || len(args) > 2 {
			d.printf("usage: request <category> [context]")
			return true
		}
		contextKey := ""
		if len(args) == 2 {
			contextKey = args[1]
		}
		d.request(domain.Category(args[0]), contextKey)
	case "status":
		for _, c := range domain.Categories() {
			d.avail(c)
		}
	case "suspend":
		d.svc.Suspend(ctx)
		d.printf("today counts saved")
	case "help":
		d.printf(helpText)
	case "quit", "exit":
		return false
	default:
		d.logger.Debug("[jreward] unknown console command", zap.String("command", cmd))
		d.printf("unknown command %q, type help", cmd)
	}
	return true
}

func (d *Driver) avail(c domain.Category) {
	remaining := "unlimited"
	if left := d.svc.RemainingToday(c); left != domain.Unlimited {
		remaining = fmt.Sprint(left)
	}
	d.printf(
		"%s status=%s used=%d remaining=%s cooldown=%s",
		c, d.svc.Status(c), d.svc.UsedToday(c), remaining, d.svc.TimeUntilAvailable(c).Round(time.Second),
	)
}

func (d *Driver) request(c domain.Category, contextKey string) {
	id := d.svc.RequestFulfillment(c, contextKey)
	if id == "" {
		return
	}
	d.printf("requested %s id=%s", c, id)
}

func (d *Driver) onEvent(ev domain.Event) {
	switch ev.Kind {
	case domain.EventProviderReady:
		d.printf("event provider_ready")
	case domain.EventFulfilled:
		d.printf(
			"event fulfilled %s id=%s reward=%s x%d item=%q %q",
			ev.Category, ev.RequestId, ev.Reward.Kind, ev.Reward.Quantity, ev.Reward.ItemId, ev.Reward.Description,
		)
	case domain.EventRejected:
		d.printf("event rejected %s id=%s reason=%q", ev.Category, ev.RequestId, ev.Reason)
	case domain.EventDismissed:
		d.printf("event dismissed %s id=%s", ev.Category, ev.RequestId)
	}
}

func (d *Driver) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := fmt.Fprintf(d.out, format+"\n", args...); err != nil {
		d.logger.Warn("[jreward] failed to write console output", zap.Error(err))
	}
}

func NewDriver(svc RewardService, in io.Reader, out io.Writer, logger *zap.Logger) *Driver {
	return &Driver{
		svc:    svc,
		in:     in,
		out:    out,
		logger: logger,
	}
}
