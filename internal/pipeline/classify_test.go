package pipeline

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier(testRules(t))

	tests := []struct {
		name    string
		sender  string
		subject string
		want    Shape
	}{
		{
			name:    "purchase subject",
			sender:  "enviodigital@bancochile.cl",
			subject: "Compra con Tarjeta de Crédito",
			want:    ShapeCardPurchase,
		},
		{
			name:    "purchase subject casing variant",
			sender:  "enviodigital@bancochile.cl",
			subject: "Compra con tarjeta de crédito",
			want:    ShapeCardPurchase,
		},
		{
			name:    "transfer by substring",
			sender:  "serviciodetransferencias@bancochile.cl",
			subject: "Comprobante de Transferencia de Fondos",
			want:    ShapeTransfer,
		},
		{
			name:    "excluded incoming transfer notice",
			sender:  "serviciodetransferencias@bancochile.cl",
			subject: "Aviso de transferencia de fondos a tu cuenta",
			want:    ShapeUnrecognized,
		},
		{
			name:    "national card payment",
			sender:  "enviodigital@bancochile.cl",
			subject: "Pago de Tarjeta de Crédito Nacional",
			want:    ShapeCardPayment,
		},
		{
			name:    "international card payment",
			sender:  "enviodigital@bancochile.cl",
			subject: "Pago de Tarjeta de Crédito Internacional",
			want:    ShapeCardPayment,
		},
		{
			name:    "unknown sender never matches",
			sender:  "phisher@example.com",
			subject: "Compra con Tarjeta de Crédito",
			want:    ShapeUnrecognized,
		},
		{
			name:    "allow-listed sender with unknown subject",
			sender:  "enviodigital@bancochile.cl",
			subject: "Estado de cuenta disponible",
			want:    ShapeUnrecognized,
		},
		{
			name:    "subject match is exact not substring",
			sender:  "enviodigital@bancochile.cl",
			subject: "Compra con Tarjeta de Crédito rechazada",
			want:    ShapeUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.sender, tt.subject); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.sender, tt.subject, got, tt.want)
			}
		})
	}
}

func TestUnwrapForwardedMessage(t *testing.T) {
	c := NewClassifier(testRules(t))

	if !c.IsForwarder("relay@example.com") {
		t.Fatal("relay@example.com should be a forwarder")
	}

	content := "De: Banco de Chile <enviodigital@bancochile.cl> Enviado: viernes " + purchaseBody
	sender, subject := c.Unwrap("Fwd: Compra con Tarjeta de Crédito", content)
	if sender != "enviodigital@bancochile.cl" {
		t.Errorf("sender = %q, want the embedded bank address", sender)
	}
	if subject != "Compra con Tarjeta de Crédito" {
		t.Errorf("subject = %q, want the forward prefix stripped", subject)
	}
	if got := c.Classify(sender, subject); got != ShapeCardPurchase {
		t.Errorf("unwrapped message classified as %s, want %s", got, ShapeCardPurchase)
	}
}
