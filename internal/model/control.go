package model

// Control is a movement intent flag of the game client.
type Control string

const (
	ControlForward Control = "forward"
	ControlBack    Control = "back"
	ControlLeft    Control = "left"
	ControlRight   Control = "right"
	ControlJump    Control = "jump"
	ControlSprint  Control = "sprint"
	ControlSneak   Control = "sneak"
)
