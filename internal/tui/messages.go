package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// documentsLoadedMsg carries the result of a document list load.
type documentsLoadedMsg struct {
	docs []summary.Document
	err  error
}

// storeChangedMsg signals that the summary store published a new state.
type storeChangedMsg struct{}

// notificationMsg carries a completion notification.
type notificationMsg struct {
	note summary.Notification
}

// toastMsg carries a toast raised by the summary service.
type toastMsg struct {
	toast summary.Toast
}

// ToastChannel is a summary.Toaster that hands toasts to the TUI. Toasts
// raised while the channel is full are dropped.
type ToastChannel chan summary.Toast

// NewToastChannel creates a toast channel with the given buffer.
func NewToastChannel(buffer int) ToastChannel {
	if buffer <= 0 {
		buffer = summary.DefaultNotificationBuffer
	}

	return make(ToastChannel, buffer)
}

// Toast implements summary.Toaster.
func (c ToastChannel) Toast(t summary.Toast) {
	select {
	case c <- t:
	default:
	}
}

func waitForStore(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func waitForNotification(ch <-chan summary.Notification) tea.Cmd {
	return func() tea.Msg {
		note, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{note: note}
	}
}

func waitForToast(ch <-chan summary.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{toast: t}
	}
}
