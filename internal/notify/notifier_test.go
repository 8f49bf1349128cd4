package notify

import (
	"context"
	"strings"
	"testing"
)

func TestConfirmationTextCarriesQueueCode(t *testing.T) {
	text := ConfirmationText("North Scale", "2025-01-10", "08:00", "0421")
	if !strings.Contains(text, "0421") {
		t.Errorf("confirmation text missing queue code: %q", text)
	}
	if !strings.Contains(text, "North Scale") || !strings.Contains(text, "08:00") {
		t.Errorf("confirmation text missing site or time: %q", text)
	}
}

func TestUpdateAndReassignTexts(t *testing.T) {
	if text := UpdateText("North Scale", "2025-01-10", "08:00", "0421"); !strings.Contains(text, "0421") {
		t.Errorf("update text missing queue code: %q", text)
	}
	if text := ReassignText("North Scale", "2025-01-10", "09:30", "0421"); !strings.Contains(text, "09:30") {
		t.Errorf("reassign text missing new time: %q", text)
	}
}

func TestNopAlwaysDelivers(t *testing.T) {
	res := Nop{}.Send(context.Background(), "+15550100", "hello")
	if !res.Delivered || res.Err != nil {
		t.Errorf("Nop.Send = %+v, want delivered with nil error", res)
	}
}
