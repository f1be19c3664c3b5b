package button

// Virtual is a software-only button.
//
// It satisfies the same contract as a physical button, so listeners
// cannot distinguish a synthesized press from a hardware one. The
// mashing orchestrator uses a shared Virtual as its "continue" trigger
// for remote confirmation.
type Virtual struct {
	notifier
}

// NewVirtual creates a released virtual button with no listeners.
func NewVirtual() *Virtual {
	return &Virtual{notifier: newNotifier()}
}

// On presses the button and notifies all listeners.
func (v *Virtual) On() {
	v.set(StateOn)
}

// Off releases the button and notifies all listeners.
func (v *Virtual) Off() {
	v.set(StateOff)
}

// Click presses and releases the button: listeners receive exactly two
// notifications, StateOn then StateOff.
func (v *Virtual) Click() {
	v.On()
	v.Off()
}
