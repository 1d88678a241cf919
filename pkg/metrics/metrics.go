package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the ballot-coordination service.
// Using promauto for automatic registration with default registry.
var (
	// --- Terminal Metrics ---

	// TerminalsConnected tracks registered terminals by role.
	TerminalsConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "coordinador",
			Subsystem: "terminales",
			Name:      "connected",
			Help:      "Registered terminals by role (jurado or votacion)",
		},
		[]string{"tipo"},
	)

	// ConnectionsOpen tracks every open websocket connection, registered or not.
	ConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coordinador",
			Subsystem: "terminales",
			Name:      "connections_open",
			Help:      "Open websocket connections, including unregistered ones",
		},
	)

	// --- Papeleta Metrics ---

	// PapeletasActivas tracks open ballot sessions.
	PapeletasActivas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coordinador",
			Subsystem: "papeletas",
			Name:      "activas",
			Help:      "Ballot sessions currently open",
		},
	)

	// PapeletasHabilitadas counts ballot sessions ever enabled.
	PapeletasHabilitadas = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coordinador",
			Subsystem: "papeletas",
			Name:      "habilitadas_total",
			Help:      "Total ballot sessions enabled",
		},
	)

	// PapeletasCerradas counts closed sessions by what triggered the close.
	PapeletasCerradas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coordinador",
			Subsystem: "papeletas",
			Name:      "cerradas_total",
			Help:      "Total ballot sessions closed, by trigger (auto or manual)",
		},
		[]string{"motivo"},
	)

	// --- Vote Metrics ---

	// VotosTotal counts vote attempts by outcome.
	VotosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coordinador",
			Subsystem: "votos",
			Name:      "total",
			Help:      "Total vote attempts by outcome (aceptado or rechazado)",
		},
		[]string{"resultado"},
	)

	// --- Event Metrics ---

	// EventosRecibidos counts inbound events by name. Unknown or undecodable
	// events are counted under a fixed label to keep cardinality bounded.
	EventosRecibidos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coordinador",
			Subsystem: "eventos",
			Name:      "recibidos_total",
			Help:      "Total inbound terminal events by event name",
		},
		[]string{"evento"},
	)

	// MensajesDescartados counts outbound messages dropped because a
	// terminal's send buffer was full.
	MensajesDescartados = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coordinador",
			Subsystem: "eventos",
			Name:      "descartados_total",
			Help:      "Outbound messages dropped due to a slow terminal",
		},
	)
)
