package console

import "github.com/avisohq/aviso-console/internal/backend"

// Badge is the presentational hint for a status or channel value. The
// console only picks the badge; drawing it is the UI's problem.
type Badge struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var statusBadges = map[backend.Status]Badge{
	backend.StatusSent:      {Icon: "check-circle", Color: "green"},
	backend.StatusPending:   {Icon: "clock", Color: "yellow"},
	backend.StatusFailed:    {Icon: "x-circle", Color: "red"},
	backend.StatusCancelled: {Icon: "alert-triangle", Color: "gray"},
}

var canalBadges = map[backend.Canal]Badge{
	backend.CanalWhatsApp: {Icon: "message-square", Color: "green"},
	backend.CanalSMS:      {Icon: "smartphone", Color: "blue"},
	backend.CanalEmail:    {Icon: "mail", Color: "purple"},
	backend.CanalPush:     {Icon: "bell", Color: "orange"},
}

var defaultBadge = Badge{Icon: "bell", Color: "gray"}

// StatusBadge maps a delivery status to its badge. Unknown values get the
// neutral default rather than failing.
func StatusBadge(s backend.Status) Badge {
	if b, ok := statusBadges[s]; ok {
		return b
	}
	return defaultBadge
}

// CanalBadge maps a channel to its badge, with the same neutral fallback.
func CanalBadge(c backend.Canal) Badge {
	if b, ok := canalBadges[c]; ok {
		return b
	}
	return defaultBadge
}
