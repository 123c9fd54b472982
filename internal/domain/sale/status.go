package sale

import (
	"time"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusSoldOut  Status = "sold_out"
)

// ComputeStatus derives a sale's visible state from its inputs alone.
// Precedence is fixed: an exhausted counter reports sold_out even while the
// time window is still open. The window is inclusive on both ends.
func ComputeStatus(now, startTime, endTime time.Time, remainingStock int) Status {
	if remainingStock <= 0 {
		return StatusSoldOut
	}

	if now.Before(startTime) {
		return StatusUpcoming
	}

	if !now.Before(startTime) && !now.After(endTime) {
		return StatusActive
	}

	return StatusEnded
}

// StatusView is the status-bearing read model. TimeUntilStart is set only
// when upcoming and TimeUntilEnd only when active, both in milliseconds and
// clamped at zero.
type StatusView struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	ProductName    string    `json:"productName"`
	RemainingStock int       `json:"remainingStock"`
	TotalStock     int       `json:"totalStock"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	TimeUntilStart *int64    `json:"timeUntilStart,omitempty"`
	TimeUntilEnd   *int64    `json:"timeUntilEnd,omitempty"`
}

func NewStatusView(s *Sale, now time.Time, remainingStock int) StatusView {
	view := StatusView{
		ID:             s.ID,
		Status:         ComputeStatus(now, s.StartTime, s.EndTime, remainingStock),
		ProductName:    s.ProductName,
		RemainingStock: remainingStock,
		TotalStock:     s.TotalStock,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
	}

	switch view.Status {
	case StatusUpcoming:
		until := clampMillis(s.StartTime.Sub(now))
		view.TimeUntilStart = &until
	case StatusActive:
		until := clampMillis(s.EndTime.Sub(now))
		view.TimeUntilEnd = &until
	}

	return view
}

func clampMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
