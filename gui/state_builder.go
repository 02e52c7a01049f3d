// Package gui is a narrow GUI state builder. Tasks publish labels, inputs and buttons under a
// category path and retract the whole category when they leave the controller. A front end reads
// the tree with State and forwards user input with Handle.
package gui

import (
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/logging"
)

// ErrNoSuchElement is returned by Handle when the category or the element does not exist.
var ErrNoSuchElement = errors.New("no such GUI element")

// ElementState is the serializable value of one element.
type ElementState struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Labels []string `json:"labels,omitempty"`
	Value  any      `json:"value,omitempty"`
}

// CategoryState is the serializable value of one category and everything below it.
type CategoryState struct {
	Name       string          `json:"name"`
	Elements   []ElementState  `json:"elements,omitempty"`
	Categories []CategoryState `json:"categories,omitempty"`
}

type category struct {
	name     string
	elements []Element
	children []*category
}

func (c *category) child(name string) *category {
	for _, ch := range c.children {
		if ch.name == name {
			return ch
		}
	}
	return nil
}

func (c *category) element(name string) (Element, bool) {
	idx := slices.IndexFunc(c.elements, func(e Element) bool { return e.name == name })
	if idx < 0 {
		return Element{}, false
	}
	return c.elements[idx], true
}

func (c *category) state() CategoryState {
	st := CategoryState{Name: c.name}
	for _, e := range c.elements {
		st.Elements = append(st.Elements, e.state())
	}
	for _, ch := range c.children {
		st.Categories = append(st.Categories, ch.state())
	}
	return st
}

// StateBuilder holds the category tree. Getters and setters run on the goroutine calling State
// or Handle, which must be the goroutine that updates the tasks.
type StateBuilder struct {
	mu     sync.Mutex
	root   category
	logger logging.Logger
}

// NewStateBuilder returns an empty builder.
func NewStateBuilder(logger logging.Logger) *StateBuilder {
	return &StateBuilder{logger: logger}
}

// AddElement adds elements under the category path, creating categories as needed. An element
// whose name already exists in the category is logged and skipped.
func (sb *StateBuilder) AddElement(path []string, elements ...Element) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	cat := &sb.root
	for _, name := range path {
		next := cat.child(name)
		if next == nil {
			next = &category{name: name}
			cat.children = append(cat.children, next)
		}
		cat = next
	}
	for _, e := range elements {
		if _, exists := cat.element(e.name); exists {
			sb.logger.Warnw("GUI element already exists, ignoring", "category", path, "name", e.name)
			continue
		}
		cat.elements = append(cat.elements, e)
	}
}

// RemoveCategory removes the category and everything below it. Removing a missing category does
// nothing.
func (sb *StateBuilder) RemoveCategory(path []string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if len(path) == 0 {
		sb.root = category{}
		return
	}
	parent := sb.find(path[:len(path)-1])
	if parent == nil {
		return
	}
	last := path[len(path)-1]
	parent.children = slices.DeleteFunc(parent.children, func(c *category) bool { return c.name == last })
}

// HasElement reports whether the category holds an element with that name.
func (sb *StateBuilder) HasElement(path []string, name string) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	cat := sb.find(path)
	if cat == nil {
		return false
	}
	_, ok := cat.element(name)
	return ok
}

// HasCategory reports whether the category exists.
func (sb *StateBuilder) HasCategory(path []string) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.find(path) != nil
}

func (sb *StateBuilder) find(path []string) *category {
	cat := &sb.root
	for _, name := range path {
		cat = cat.child(name)
		if cat == nil {
			return nil
		}
	}
	return cat
}

// State evaluates every getter and returns the tree.
func (sb *StateBuilder) State() CategoryState {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.root.state()
}

// Handle forwards user input to an element. Array inputs accept anything that decodes to a slice
// of numbers of the element's size; checkboxes and buttons ignore data.
func (sb *StateBuilder) Handle(path []string, name string, data any) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	cat := sb.find(path)
	if cat == nil {
		return errors.Wrapf(ErrNoSuchElement, "category %v", path)
	}
	e, ok := cat.element(name)
	if !ok {
		return errors.Wrapf(ErrNoSuchElement, "element %q in category %v", name, path)
	}

	switch e.kind {
	case KindArrayInput:
		var values []float64
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &values,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(data); err != nil {
			return errors.Wrapf(err, "element %q", name)
		}
		if len(e.labels) != 0 && len(values) != len(e.labels) {
			return errors.Errorf("element %q expects %d values, got %d", name, len(e.labels), len(values))
		}
		e.setValues(values)
	case KindCheckbox:
		e.toggle()
	case KindButton:
		e.click()
	case KindLabel, KindArrayLabel:
		return errors.Errorf("element %q is a %v and takes no input", name, e.kind)
	}
	return nil
}
