package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ids(r *Report) []string {
	out := make([]string, len(r.Elements))
	for i := range r.Elements {
		out[i] = r.Elements[i].ID
	}
	return out
}

func newReport(t *testing.T, types ...ElementType) *Report {
	t.Helper()
	r := &Report{Name: "Test"}
	for i, typ := range types {
		e, err := NewElement(typ)
		if err != nil {
			t.Fatal(err)
		}
		e.ID = string(rune('a' + i))
		if err := r.AddElement(e); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestReportValidate(t *testing.T) {
	r := newReport(t, ElementText, ElementChart)
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	r.Name = "   "
	if err := r.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("got %v, want %v", err, ErrEmptyName)
	}
	r.Name = "x"
	r.Elements[1].ID = "a"
	if err := r.Validate(); !errors.Is(err, ErrDuplicateElement) {
		t.Errorf("got %v, want %v", err, ErrDuplicateElement)
	}
	r.Elements[1].ID = "b"
	r.Elements[1].Type = "video"
	if err := r.Validate(); !errors.Is(err, ErrInvalidElementType) {
		t.Errorf("got %v, want %v", err, ErrInvalidElementType)
	}
}

func TestZOrder(t *testing.T) {
	r := newReport(t, ElementText, ElementText, ElementText)
	if err := r.BringToFront("a"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, ids(r)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err := r.SendToBack("c"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, ids(r)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err := r.RemoveElement("b"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "a"}, ids(r)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err := r.BringToFront("zz"); !errors.Is(err, ErrElementNotFound) {
		t.Errorf("got %v, want %v", err, ErrElementNotFound)
	}
	e, _ := NewElement(ElementText)
	e.ID = "a"
	if err := r.AddElement(e); !errors.Is(err, ErrDuplicateElement) {
		t.Errorf("got %v, want %v", err, ErrDuplicateElement)
	}
}

func TestMoveResize(t *testing.T) {
	r := newReport(t, ElementImage)
	if err := r.MoveElement("a", Position{X: -20, Y: 900}); err != nil {
		t.Fatal(err)
	}
	if err := r.ResizeElement("a", Size{Width: 10, Height: 0}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("got %v, want %v", err, ErrInvalidSize)
	}
	if err := r.ResizeElement("a", Size{Width: 10, Height: 20}); err != nil {
		t.Fatal(err)
	}
	e, err := r.Element("a")
	if err != nil {
		t.Fatal(err)
	}
	if e.Position != (Position{X: -20, Y: 900}) || e.Size != (Size{Width: 10, Height: 20}) {
		t.Errorf("got %+v %+v", e.Position, e.Size)
	}
}

func TestUpdateElement(t *testing.T) {
	r := newReport(t, ElementText)
	u := &ElementUpdate{
		Content: map[string]any{"text": "Hello", "fontSize": 24},
		Style:   map[string]any{"color": "#ff0000", "padding": nil},
	}
	if err := r.UpdateElement("a", u); err != nil {
		t.Fatal(err)
	}
	e, _ := r.Element("a")
	want := &TextContent{Text: "Hello", FontSize: 24, FontWeight: DefaultFontWeight}
	if diff := cmp.Diff(want, e.Content.Text); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if e.Style.Color != "#ff0000" || e.Style.Padding != nil || e.Style.BackgroundColor != DefaultBackgroundColor {
		t.Errorf("unexpected style %+v", e.Style)
	}
	if e.Type != ElementText {
		t.Errorf("type changed to %q", e.Type)
	}

	t.Run("invalid size leaves element untouched", func(t *testing.T) {
		err := r.UpdateElement("a", &ElementUpdate{
			Content: map[string]any{"text": "nope"},
			Size:    &Size{Width: -1, Height: 5},
		})
		if !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("got %v, want %v", err, ErrInvalidSize)
		}
		e, _ := r.Element("a")
		if e.Content.Text.Text != "Hello" {
			t.Errorf("got %q", e.Content.Text.Text)
		}
	})
}

func TestTableOps(t *testing.T) {
	r := newReport(t, ElementTable, ElementText)
	tbl, err := r.Table("a")
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn("  "); !errors.Is(err, ErrEmptyHeader) {
		t.Errorf("got %v, want %v", err, ErrEmptyHeader)
	}
	if err := tbl.AddColumn(" Total "); err != nil {
		t.Fatal(err)
	}
	tbl.AddRow()
	if err := tbl.SetCell(2, 3, "42"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RemoveColumn(0); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RemoveRow(0); err != nil {
		t.Fatal(err)
	}
	want := TableContent{
		Headers: []string{"Column 2", "Column 3", "Total"},
		Rows:    [][]string{{"Data 5", "Data 6", ""}, {"", "", "42"}},
	}
	e, _ := r.Element("a")
	if diff := cmp.Diff(want, e.TableContent()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err := tbl.SetCell(0, 5, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want %v", err, ErrIndexOutOfRange)
	}
	if _, err := r.Table("b"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("got %v, want %v", err, ErrTypeMismatch)
	}
}

func TestTableNormalize(t *testing.T) {
	tbl := TableContent{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}, {"1", "2", "3"}}}
	tbl.Normalize()
	want := TableContent{Headers: []string{"a", "b"}, Rows: [][]string{{"1", ""}, {"1", "2"}}}
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestChartOps(t *testing.T) {
	r := newReport(t, ElementChart)
	c, err := r.Chart("a")
	if err != nil {
		t.Fatal(err)
	}
	c.AddPoint("May", 100)
	if err := c.SetPoint(0, "January", 1); err != nil {
		t.Fatal(err)
	}
	if err := c.RemovePoint(1); err != nil {
		t.Fatal(err)
	}
	if err := c.RemovePoint(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want %v", err, ErrIndexOutOfRange)
	}
	e, _ := r.Element("a")
	want := []DataPoint{{"January", 1}, {"Mar", 600}, {"Apr", 800}, {"May", 100}}
	if diff := cmp.Diff(want, e.ChartContent().Data); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReportClone(t *testing.T) {
	r := newReport(t, ElementChart)
	c := r.Clone()
	c.Elements[0].Content.Chart.Data[0].Value = -1
	c.Name = "Other"
	if r.Elements[0].Content.Chart.Data[0].Value != 400 || r.Name != "Test" {
		t.Error("clone shares state")
	}
}

func TestScheduleCronSpec(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
		want string
	}{
		{"daily", Schedule{Frequency: Daily, Time: "09:30"}, "30 9 * * *"},
		{"weekly", Schedule{Frequency: Weekly, Time: "18:05", Days: []string{"Friday", "monday", "friday"}}, "5 18 * * 1,5"},
		{"monthly default day", Schedule{Frequency: Monthly, Time: "00:00"}, "0 0 1 * *"},
		{"monthly", Schedule{Frequency: Monthly, Time: "07:15", DayOfMonth: 15}, "15 7 15 * *"},
		{"custom", Schedule{Frequency: Custom, CustomCron: " */5 * * * * "}, "*/5 * * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.CronSpec()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	bad := []Schedule{
		{Frequency: Daily, Time: "25:00"},
		{Frequency: Daily, Time: "noon"},
		{Frequency: Weekly, Time: "10:00"},
		{Frequency: Weekly, Time: "10:00", Days: []string{"someday"}},
		{Frequency: Monthly, Time: "10:00", DayOfMonth: 32},
		{Frequency: Custom},
		{Frequency: "hourly", Time: "10:00"},
	}
	for _, s := range bad {
		if _, err := s.CronSpec(); !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("%+v: got %v, want %v", s, err, ErrInvalidSchedule)
		}
	}
}

func TestScheduleNext(t *testing.T) {
	s := Schedule{ReportSlug: "q4", Frequency: Weekly, Time: "08:00", Days: []string{"monday"}}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	// 2025-01-01 is a Wednesday.
	from := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := s.Next(from)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	s.Frequency = Custom
	s.CustomCron = "not a cron"
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("got %v, want %v", err, ErrInvalidSchedule)
	}
}
