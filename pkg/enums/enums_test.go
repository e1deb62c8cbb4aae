package enums

import "testing"

func TestOutboxEnums(t *testing.T) {
	if !EventPaymentCreated.IsValid() || !AggregatePayment.IsValid() {
		t.Fatal("expected payment outbox enums to be valid")
	}
	if OutboxEventType("order_created").IsValid() {
		t.Fatal("expected unknown event type to be rejected")
	}
	if OutboxAggregateType("Payment").IsValid() {
		t.Fatal("aggregate types are case sensitive")
	}
}

func TestChatRoles(t *testing.T) {
	for _, r := range []ChatRole{ChatRoleSystem, ChatRoleUser, ChatRoleAssistant} {
		if !r.IsValid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if ChatRole("tool").IsValid() {
		t.Fatal("tool role is not supported")
	}
	if PaymentStatusSuccess.String() != "Success" {
		t.Fatalf("unexpected status string %q", PaymentStatusSuccess)
	}
}
