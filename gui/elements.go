package gui

// Kind is the kind of a GUI element.
type Kind int

// The supported element kinds.
const (
	KindLabel Kind = iota
	KindArrayLabel
	KindArrayInput
	KindCheckbox
	KindButton
)

func (k Kind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindArrayLabel:
		return "array_label"
	case KindArrayInput:
		return "array_input"
	case KindCheckbox:
		return "checkbox"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// Element is a named widget bound to getters and setters owned by a task.
type Element struct {
	name   string
	kind   Kind
	labels []string

	text      func() string
	values    func() []float64
	setValues func([]float64)
	checked   func() bool
	toggle    func()
	click     func()
}

// Name returns the element name, unique within its category.
func (e Element) Name() string {
	return e.name
}

// Kind returns the element kind.
func (e Element) Kind() Kind {
	return e.kind
}

// Label shows a string.
func Label(name string, get func() string) Element {
	return Element{name: name, kind: KindLabel, text: get}
}

// ArrayLabel shows a vector of values, one per label.
func ArrayLabel(name string, labels []string, get func() []float64) Element {
	return Element{name: name, kind: KindArrayLabel, labels: labels, values: get}
}

// ArrayInput shows a vector of values and accepts a new vector of the same size.
func ArrayInput(name string, labels []string, get func() []float64, set func([]float64)) Element {
	return Element{name: name, kind: KindArrayInput, labels: labels, values: get, setValues: set}
}

// Checkbox shows a boolean and flips it on input.
func Checkbox(name string, get func() bool, toggle func()) Element {
	return Element{name: name, kind: KindCheckbox, checked: get, toggle: toggle}
}

// Button calls cb on input.
func Button(name string, cb func()) Element {
	return Element{name: name, kind: KindButton, click: cb}
}

// state evaluates the element's getter.
func (e Element) state() ElementState {
	st := ElementState{Name: e.name, Kind: e.kind.String(), Labels: e.labels}
	switch e.kind {
	case KindLabel:
		st.Value = e.text()
	case KindArrayLabel, KindArrayInput:
		st.Value = e.values()
	case KindCheckbox:
		st.Value = e.checked()
	case KindButton:
	}
	return st
}
