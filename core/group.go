package core

// GroupMax is the fixed axis capacity of a Group.
const GroupMax = 4

// Group is a bounded ordered set of axes receiving fanned-out commands and
// aggregate status. The group does not own its members; the application
// constructs the axes and registers them here. Fan-out follows insertion
// order and there is no rollback: members committed before a failing one
// stay committed.
type Group struct {
	axes  [GroupMax]*Axis
	count uint8
}

// Add registers an axis. It fails when the group is full, the axis is nil,
// or the axis is already a member, leaving the group unchanged.
func (g *Group) Add(a *Axis) bool {
	if g == nil || a == nil || g.count >= GroupMax {
		return false
	}
	for i := uint8(0); i < g.count; i++ {
		if g.axes[i] == a {
			return false
		}
	}
	g.axes[g.count] = a
	g.count++
	return true
}

// Len returns the number of registered axes.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return int(g.count)
}

// Enable fans out Enable to every member.
func (g *Group) Enable(on bool) {
	if g == nil {
		return
	}
	for i := uint8(0); i < g.count; i++ {
		g.axes[i].Enable(on)
	}
}

// SetSpeed fans out SetSpeed to every member.
func (g *Group) SetSpeed(usPerStep uint32) {
	if g == nil {
		return
	}
	for i := uint8(0); i < g.count; i++ {
		g.axes[i].SetSpeed(usPerStep)
	}
}

// MoveTo fans out an absolute target to every member.
func (g *Group) MoveTo(position int32) {
	if g == nil {
		return
	}
	for i := uint8(0); i < g.count; i++ {
		g.axes[i].MoveTo(position)
	}
}

// MoveBy fans out a relative move to every member.
func (g *Group) MoveBy(steps int32) {
	if g == nil {
		return
	}
	for i := uint8(0); i < g.count; i++ {
		g.axes[i].Move(steps)
	}
}

// EnableLimits fans out EnableLimits to every member.
func (g *Group) EnableLimits() {
	if g == nil {
		return
	}
	for i := uint8(0); i < g.count; i++ {
		g.axes[i].EnableLimits()
	}
}

// Update ticks every member and reports whether any axis is still moving.
// An empty group reports false.
func (g *Group) Update(elapsedUS uint32) bool {
	if g == nil {
		return false
	}
	anyBusy := false
	for i := uint8(0); i < g.count; i++ {
		if g.axes[i].Update(elapsedUS) {
			anyBusy = true
		}
	}
	return anyBusy
}
