package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"chairbook/internal/config"
	"chairbook/internal/domain"
	"chairbook/internal/metrics"
	"chairbook/internal/models"
	"chairbook/internal/policy"
	"chairbook/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// CalendarArchiver stores a chair calendar as a file.
type CalendarArchiver interface {
	SaveCalendar(chair models.Chair, days []models.DayResolution) (string, error)
}

// Notifier runs the daily pass: Telegram digest of upcoming sessions, day board, calendar archive.
type Notifier struct {
	bookings  domain.BookingService
	schedule  domain.ScheduleService
	sender    domain.TelegramSender
	sheets    domain.SheetsWriter
	archiver  CalendarArchiver
	chatIDs   []int64
	runAt     int // minute of day
	lookahead time.Duration
	retry     RetryPolicy
	logger    zerolog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

func New(
	cfg config.NotifierConfig,
	bookings domain.BookingService,
	schedule domain.ScheduleService,
	sender domain.TelegramSender,
	logger *zerolog.Logger,
) (*Notifier, error) {
	runAt, err := slots.ParseClock(cfg.RunTime)
	if err != nil {
		return nil, fmt.Errorf("notifier run_time: %w", err)
	}
	if cfg.LookaheadHrs <= 0 {
		return nil, errors.New("notifier lookahead_hours must be positive")
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "notifier").Logger()
	}

	return &Notifier{
		bookings:  bookings,
		schedule:  schedule,
		sender:    sender,
		chatIDs:   cfg.ChatIDs,
		runAt:     runAt,
		lookahead: time.Duration(cfg.LookaheadHrs) * time.Hour,
		retry: RetryPolicy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: 2 * time.Second,
			MaxDelay:     time.Minute,
		},
		logger: l,
		now:    time.Now,
		sleep:  sleepCtx,
	}, nil
}

// UsePublisher enables the Google Sheets day board.
func (n *Notifier) UsePublisher(w domain.SheetsWriter) {
	n.sheets = w
}

// UseArchiver enables saving each active chair's calendar workbook.
func (n *Notifier) UseArchiver(a CalendarArchiver) {
	n.archiver = a
}

// Run waits for the configured time of day and then runs a pass every 24h until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	wait := timeUntilNext(n.now().In(n.schedule.Location()), n.runAt)
	n.logger.Info().Dur("wait", wait).Msg("Notifier scheduled")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := n.RunOnce(ctx); err != nil {
				n.logger.Error().Err(err).Msg("Notifier pass failed")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce performs a single pass. Failures of one step do not stop the others.
func (n *Notifier) RunOnce(ctx context.Context) error {
	now := n.now()
	var errs []error

	if err := n.sendReminders(ctx, now); err != nil {
		errs = append(errs, err)
	}

	if n.sheets == nil && n.archiver == nil {
		return errors.Join(errs...)
	}

	loc := n.schedule.Location()
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	overview, err := n.schedule.Overview(ctx, today, now)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("load overview: %w", err))...)
	}

	if n.sheets != nil {
		if err := n.sheets.PublishDayBoard(ctx, today, overview); err != nil {
			errs = append(errs, fmt.Errorf("publish day board: %w", err))
		}
	}
	if n.archiver != nil {
		errs = append(errs, n.archive(ctx, today, overview)...)
	}
	return errors.Join(errs...)
}

func (n *Notifier) sendReminders(ctx context.Context, now time.Time) error {
	if len(n.chatIDs) == 0 {
		return nil
	}

	upcoming, err := n.bookings.Upcoming(ctx, now, now.Add(n.lookahead))
	if err != nil {
		return fmt.Errorf("load upcoming bookings: %w", err)
	}
	if len(upcoming) == 0 {
		n.logger.Info().Msg("No upcoming sessions, nothing to send")
		return nil
	}

	text := FormatDigest(upcoming, n.chairNames(ctx, upcoming), now, n.schedule.Location(), n.lookahead)
	chunks := splitMessage(text, maxMessageLen)

	var errs []error
	for _, chatID := range n.chatIDs {
		var err error
		for _, chunk := range chunks {
			msg := tgbotapi.NewMessage(chatID, chunk)
			err = n.retry.Do(ctx, n.sleep, func() error {
				_, err := n.sender.Send(msg)
				return err
			})
			if err != nil {
				break
			}
		}
		if err != nil {
			metrics.IncReminder("failed")
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("reminder: send error")
			errs = append(errs, fmt.Errorf("send to chat %d: %w", chatID, err))
			continue
		}
		metrics.IncReminder("sent")
	}
	n.logger.Info().Int("sessions", len(upcoming)).Int("chats", len(n.chatIDs)).Msg("Reminder digest sent")
	return errors.Join(errs...)
}

func (n *Notifier) chairNames(ctx context.Context, bookings []models.Booking) map[int64]string {
	names := make(map[int64]string)
	for _, b := range bookings {
		if _, ok := names[b.ChairID]; ok {
			continue
		}
		chair, err := n.schedule.Chair(ctx, b.ChairID)
		if err != nil {
			n.logger.Warn().Err(err).Int64("chair_id", b.ChairID).Msg("reminder: load chair error")
			names[b.ChairID] = fmt.Sprintf("Chair %d", b.ChairID)
			continue
		}
		names[b.ChairID] = chair.Name
	}
	return names
}

func (n *Notifier) archive(ctx context.Context, today time.Time, overview []models.ChairDay) []error {
	var errs []error
	for _, cd := range overview {
		days, err := n.schedule.Calendar(ctx, cd.Chair.ID, today, models.DefaultCalendarDays)
		if err != nil {
			errs = append(errs, fmt.Errorf("calendar for chair %d: %w", cd.Chair.ID, err))
			continue
		}
		path, err := n.archiver.SaveCalendar(cd.Chair, days)
		if err != nil {
			errs = append(errs, fmt.Errorf("save calendar for chair %d: %w", cd.Chair.ID, err))
			continue
		}
		n.logger.Debug().Int64("chair_id", cd.Chair.ID).Str("path", path).Msg("Calendar archived")
	}
	return errs
}

// FormatDigest renders one line per session, in start order.
func FormatDigest(bookings []models.Booking, chairNames map[int64]string, now time.Time, loc *time.Location, window time.Duration) string {
	sorted := make([]models.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Upcoming sessions (next %d hours):\n", int(window.Hours()))
	for _, b := range sorted {
		name := chairNames[b.ChairID]
		if name == "" {
			name = fmt.Sprintf("Chair %d", b.ChairID)
		}
		fmt.Fprintf(&sb, "• %s %s, booking #%d, user %d, starts in %s\n",
			b.StartTime.In(loc).Format("Mon 02.01 15:04"),
			name,
			b.ID,
			b.UserID,
			policy.FormatRemaining(b.StartTime, now),
		)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// maxMessageLen is the Telegram limit for a single text message.
const maxMessageLen = 4096

// splitMessage cuts text into chunks of at most limit runes, breaking between
// lines where it can.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		for lineLen > limit {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		if curLen > 0 && curLen+1+lineLen > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += lineLen
	}
	flush()
	return chunks
}

// timeUntilNext returns the wait until the next occurrence of minuteOfDay in now's location.
func timeUntilNext(now time.Time, minuteOfDay int) time.Duration {
	y, m, d := now.Date()
	next := slots.At(time.Date(y, m, d, 0, 0, 0, 0, now.Location()), minuteOfDay)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
