package session

import (
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/selection"
)

// SelectionView is a serialisable snapshot of the selector state
type SelectionView struct {
	Phase      selection.Phase    `json:"phase"`
	Page       int                `json:"page,omitempty"`
	ScreenRect *geometry.Rect     `json:"screen_rect,omitempty"`
	Pending    *selection.Pending `json:"pending,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
}

// View describes state for clients
func View(state selection.State) SelectionView {
	switch st := state.(type) {
	case selection.Dragging:
		r := st.ScreenRect()
		return SelectionView{Phase: st.Phase(), Page: st.Page, ScreenRect: &r}
	case selection.AwaitingIndex:
		p := st.Pending
		v := SelectionView{Phase: st.Phase(), Page: p.Page, Pending: &p}
		if st.LastError != nil {
			v.LastError = st.LastError.Error()
		}
		return v
	default:
		return SelectionView{Phase: selection.PhaseIdle}
	}
}
