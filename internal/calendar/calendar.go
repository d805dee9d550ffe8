package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Формат идентификатора слота: "YYYY-MM-DD#NN", где NN —
// двузначный индекс получаса от полуночи (03:00 → 06, 23:30 → 47).
// Идентификатор намеренно не зависит от отображаемых строк времени.
const (
	dateLayout      = "2006-01-02"
	idSeparator     = "#"
	halfHoursPerDay = 48

	// OpeningIndex первый бронируемый получас дня (03:00).
	OpeningIndex = 6
	// ClosingIndex последний бронируемый получас дня (23:30).
	ClosingIndex = 47

	// HorizonDays глубина скользящего горизонта бронирования.
	HorizonDays = 2

	// SlotDuration длительность одного слота.
	SlotDuration = 30 * time.Minute
)

// SlotsPerDay — число бронируемых слотов в одном дне.
const SlotsPerDay = ClosingIndex - OpeningIndex + 1

// Slot — один бронируемый интервал. Слоты не хранятся в БД,
// идентификатор служит адресом в модели занятости.
type Slot struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	TimeLabel string    `json:"time_label"`
	DateLabel string    `json:"date_label"`
}

// Day группирует слоты одной календарной даты.
type Day struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Slots []Slot `json:"slots"`
}

// EncodeSlotID derives the stable id for a day and half-hour index.
func EncodeSlotID(day time.Time, index int) string {
	return fmt.Sprintf("%s%s%02d", day.Format(dateLayout), idSeparator, index)
}

// DecodeSlotID parses a slot id back into its date and half-hour index.
func DecodeSlotID(id string, loc *time.Location) (time.Time, int, error) {
	parts := strings.Split(id, idSeparator)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("malformed slot id %q", id)
	}

	day, err := time.ParseInLocation(dateLayout, parts[0], loc)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed slot id %q: %w", id, err)
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return time.Time{}, 0, fmt.Errorf("malformed slot id %q: bad index", id)
	}
	if index < 0 || index >= halfHoursPerDay {
		return time.Time{}, 0, fmt.Errorf("malformed slot id %q: index out of range", id)
	}

	return day, index, nil
}

// SlotStart returns the wall-clock start of the slot identified by id.
func SlotStart(id string, loc *time.Location) (time.Time, error) {
	day, index, err := DecodeSlotID(id, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(index) * SlotDuration), nil
}

// Generator детерминированно перечисляет вселенную бронируемых слотов.
// Чистая функция от текущего времени, без состояния и без ошибок.
type Generator struct {
	loc *time.Location
	now func() time.Time
}

func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{loc: loc, now: time.Now}
}

// WithClock substitutes the time source, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Days возвращает слоты скользящего горизонта, сгруппированные по датам
// и упорядоченные по времени начала.
func (g *Generator) Days() []Day {
	now := g.now().In(g.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)

	days := make([]Day, 0, HorizonDays)
	for d := 0; d < HorizonDays; d++ {
		dayStart := midnight.AddDate(0, 0, d)
		day := Day{
			Date:  dayStart.Format(dateLayout),
			Label: dayStart.Format("Mon, Jan 2"),
			Slots: make([]Slot, 0, SlotsPerDay),
		}
		for idx := OpeningIndex; idx <= ClosingIndex; idx++ {
			start := dayStart.Add(time.Duration(idx) * SlotDuration)
			day.Slots = append(day.Slots, Slot{
				ID:        EncodeSlotID(dayStart, idx),
				Start:     start,
				TimeLabel: start.Format("3:04 PM"),
				DateLabel: day.Label,
			})
		}
		days = append(days, day)
	}
	return days
}

// Slots возвращает плоский упорядоченный список слотов горизонта.
func (g *Generator) Slots() []Slot {
	var out []Slot
	for _, day := range g.Days() {
		out = append(out, day.Slots...)
	}
	return out
}

// HoursUntil computes hours from now until the slot start. Negative for
// slots already in the past.
func (g *Generator) HoursUntil(id string) (float64, error) {
	start, err := SlotStart(id, g.loc)
	if err != nil {
		return 0, err
	}
	return start.Sub(g.now()).Hours(), nil
}

// Bookable reports whether the slot index falls into opening hours.
func Bookable(index int) bool {
	return index >= OpeningIndex && index <= ClosingIndex
}
