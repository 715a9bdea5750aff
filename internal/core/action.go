package core

import "time"

const (
	ActionRemove ActionKind = "remove"
	ActionClear  ActionKind = "clear"
	ActionReset  ActionKind = "reset"
)

// ActionKind names a destructive ledger operation.
type ActionKind string

// Prompt is the text shown before a destructive action runs.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
}

// PendingAction is a destructive operation waiting for confirm or cancel.
type PendingAction struct {
	ID        string
	Kind      ActionKind
	ExpenseID string
	Prompt    Prompt
	CreatedAt time.Time
}

// PromptFor returns the confirmation text for kind.
func PromptFor(kind ActionKind) Prompt {
	switch kind {
	case ActionRemove:
		return Prompt{
			Title:        "Excluir Nota?",
			Message:      "Este registro será removido permanentemente.",
			ConfirmLabel: "Sim, Excluir",
		}
	case ActionClear:
		return Prompt{
			Title:        "Apagar Todas as Notas?",
			Message:      "Isso apagará todas as notas e fotos. Esta ação não pode ser desfeita.",
			ConfirmLabel: "Apagar Notas",
		}
	default:
		return Prompt{
			Title:        "Zerar Aplicativo?",
			Message:      "Isso apagará todas as notas, fotos e configurações. Esta ação não pode ser desfeita.",
			ConfirmLabel: "Apagar Tudo",
		}
	}
}
