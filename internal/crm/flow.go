package crm

import "fmt"

// Outcome: resultado elegido al cerrar una actividad.
type Outcome string

const (
	OutcomeComplete    Outcome = "complete"
	OutcomeNotComplete Outcome = "not-complete"
	OutcomeBlock       Outcome = "block"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeComplete, OutcomeNotComplete, OutcomeBlock:
		return true
	}
	return false
}

// FlowState: paso del flujo de cierre de una actividad.
//
//	buttons -> complete | not-complete | block -> awaiting-next-activity -> done
//
// awaiting-next-activity sólo se alcanza al completar una actividad con prospecto
// y no se puede descartar: la única salida es crear la actividad siguiente.
type FlowState string

const (
	StateButtons              FlowState = "buttons"
	StateComplete             FlowState = "complete"
	StateNotComplete          FlowState = "not-complete"
	StateBlock                FlowState = "block"
	StateAwaitingNextActivity FlowState = "awaiting-next-activity"
	StateDone                 FlowState = "done"
)

func (s FlowState) transitionErr(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, s)
}

// Choose pasa de los botones al paso de comentario del resultado elegido.
func (s FlowState) Choose(o Outcome) (FlowState, error) {
	if s != StateButtons {
		return s, s.transitionErr("choose")
	}
	switch o {
	case OutcomeComplete:
		return StateComplete, nil
	case OutcomeNotComplete:
		return StateNotComplete, nil
	case OutcomeBlock:
		return StateBlock, nil
	}
	return s, invalid("outcome", "resultado desconocido")
}

// Cancel vuelve a los botones desde un paso de comentario.
func (s FlowState) Cancel() (FlowState, error) {
	if !s.commentStep() {
		return s, s.transitionErr("cancel")
	}
	return StateButtons, nil
}

// Submitted: el cambio de estado ya quedó guardado.
func (s FlowState) Submitted(hasProspect bool) (FlowState, error) {
	if !s.commentStep() {
		return s, s.transitionErr("submit")
	}
	if s == StateComplete && hasProspect {
		return StateAwaitingNextActivity, nil
	}
	return StateDone, nil
}

// FollowUpCreated cierra el flujo una vez creada la actividad siguiente.
func (s FlowState) FollowUpCreated() (FlowState, error) {
	if s != StateAwaitingNextActivity {
		return s, s.transitionErr("follow-up")
	}
	return StateDone, nil
}

// Dismissible indica si el paso puede cerrarse sin completar (clic afuera, escape).
func (s FlowState) Dismissible() bool {
	return s != StateAwaitingNextActivity
}

func (s FlowState) commentStep() bool {
	return s == StateComplete || s == StateNotComplete || s == StateBlock
}
