package mapper

import "fmt"

// DragState is the active gesture. The set is closed: Idle,
// DraggingSpaceControl and DraggingField are its only members.
type DragState interface {
	fmt.Stringer
	dragState()
}

// Idle means no pointer is down.
type Idle struct{}

// DraggingSpaceControl is a vertical drag that started on the cube. Space
// is measured relative to where the drag began.
type DraggingSpaceControl struct {
	AnchorY     float64
	AnchorSpace float64
}

// DraggingField is a drag that started outside the cube. The pointer
// position is mapped straight onto the field parameters.
type DraggingField struct{}

func (Idle) dragState()                 {}
func (DraggingSpaceControl) dragState() {}
func (DraggingField) dragState()        {}

func (Idle) String() string                 { return "idle" }
func (DraggingSpaceControl) String() string { return "space" }
func (DraggingField) String() string        { return "field" }
