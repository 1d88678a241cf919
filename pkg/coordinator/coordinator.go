// Package coordinator mediates ballot sessions between jurado terminals and
// votación terminals. One Coordinator instance owns the connection registry
// and the session store; a single mutex covers both so that every event
// handler sees and mutates them atomically, which is what makes the
// at-most-one-vote-per-papeleta guarantee hold under concurrent connections.
package coordinator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"coordinador/pkg/metrics"
	"coordinador/pkg/models"
)

// ConnID is the server-assigned handle for one open connection. It is not
// stable across reconnects; the terminal-chosen maquinaId is advisory only.
type ConnID string

// Sender delivers one event to a connected terminal. Implementations must
// not block: the Coordinator calls Send while holding its lock.
type Sender interface {
	Send(evento string, datos any)
}

// terminal is one registered entry in a role table.
type terminal struct {
	maquinaID string
	sender    Sender
}

// papeleta is one ephemeral ballot session, alive between habilitar_papeleta
// and papeleta_cerrada. Sessions are never persisted.
type papeleta struct {
	datos        models.PapeletaHabilitacion
	origen       ConnID // jurado connection that enabled it
	habilitadaEn time.Time

	// set once votada is true
	votada                bool
	candidatoSeleccionado int
	fechaVoto             string
	votadaPor             ConnID
}

// Stats is a point-in-time snapshot for the health endpoint.
type Stats struct {
	Total            int
	Jurado           int
	Votacion         int
	PapeletasActivas int
}

// Coordinator accepts inbound terminal events, enforces the papeleta state
// machine and drives replies, notifications and fan-out broadcasts.
type Coordinator struct {
	mu         sync.Mutex
	conns      map[ConnID]Sender
	jurados    map[ConnID]*terminal
	votacion   map[ConnID]*terminal
	papeletas  map[string]*papeleta
	timers     map[string]*time.Timer
	closeDelay time.Duration
	log        *zap.Logger
}

// New creates a Coordinator. closeDelay is how long a voted papeleta stays
// open before the automatic close fires.
func New(closeDelay time.Duration, log *zap.Logger) *Coordinator {
	return &Coordinator{
		conns:      make(map[ConnID]Sender),
		jurados:    make(map[ConnID]*terminal),
		votacion:   make(map[ConnID]*terminal),
		papeletas:  make(map[string]*papeleta),
		timers:     make(map[string]*time.Timer),
		closeDelay: closeDelay,
		log:        log,
	}
}

// Attach makes a new connection known to the coordinator. The connection has
// no role until it sends a registration event.
func (c *Coordinator) Attach(id ConnID, s Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conns[id] = s
	metrics.ConnectionsOpen.Set(float64(len(c.conns)))
	c.log.Debug("conexion abierta", zap.String("connId", string(id)))
}

// Detach is the liveness monitor: it prunes a dropped connection from the
// registry. Papeletas the connection enabled stay open and votable; only the
// best-effort papeleta_utilizada notification is lost.
func (c *Coordinator) Detach(id ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.conns, id)
	if t, ok := c.jurados[id]; ok {
		delete(c.jurados, id)
		c.log.Info("maquina del jurado desconectada",
			zap.String("maquinaId", t.maquinaID), zap.String("connId", string(id)))
	}
	if t, ok := c.votacion[id]; ok {
		delete(c.votacion, id)
		c.log.Info("maquina de votacion desconectada",
			zap.String("maquinaId", t.maquinaID), zap.String("connId", string(id)))
	}
	c.updateGauges()
}

// RegisterJurado registers the connection as a poll-worker terminal and
// acknowledges with registro_exitoso. Re-registration overwrites the entry.
func (c *Coordinator) RegisterJurado(id ConnID, maquinaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.conns[id]
	if !ok {
		return // connection already gone
	}
	delete(c.votacion, id) // a handle holds at most one role
	c.jurados[id] = &terminal{maquinaID: maquinaID, sender: s}
	c.updateGauges()

	c.log.Info("maquina del jurado registrada",
		zap.String("maquinaId", maquinaID), zap.String("connId", string(id)))
	s.Send(models.EvRegistroExitoso, models.RegistroExitoso{
		Tipo:      "jurado",
		MaquinaID: maquinaID,
		Mensaje:   "Máquina del jurado registrada exitosamente",
	})
}

// RegisterVotacion registers the connection as a voting-booth terminal and
// acknowledges with registro_exitoso. Re-registration overwrites the entry.
func (c *Coordinator) RegisterVotacion(id ConnID, maquinaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.conns[id]
	if !ok {
		return
	}
	delete(c.jurados, id)
	c.votacion[id] = &terminal{maquinaID: maquinaID, sender: s}
	c.updateGauges()

	c.log.Info("maquina de votacion registrada",
		zap.String("maquinaId", maquinaID), zap.String("connId", string(id)))
	s.Send(models.EvRegistroExitoso, models.RegistroExitoso{
		Tipo:      "votacion",
		MaquinaID: maquinaID,
		Mensaje:   "Máquina de votación registrada exitosamente",
	})
}

// HabilitarPapeleta opens a ballot session and fans the payload out to every
// votación terminal registered at this moment. Terminals registering later
// never see this broadcast. The enabling jurado gets papeleta_enviada with
// the recipient count.
func (c *Coordinator) HabilitarPapeleta(id ConnID, datos models.PapeletaHabilitacion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.papeletas[datos.PapeletaID] = &papeleta{
		datos:        datos,
		origen:       id,
		habilitadaEn: time.Now(),
	}
	metrics.PapeletasHabilitadas.Inc()
	c.updateGauges()

	receptoras := 0
	for _, t := range c.votacion {
		t.sender.Send(models.EvPapeletaHabilitada, datos)
		receptoras++
	}
	c.log.Info("papeleta habilitada",
		zap.String("papeletaId", datos.PapeletaID),
		zap.Int("maquinasReceptoras", receptoras))

	if s, ok := c.conns[id]; ok {
		s.Send(models.EvPapeletaEnviada, models.PapeletaEnviada{
			PapeletaID:         datos.PapeletaID,
			MaquinasReceptoras: receptoras,
		})
	}
}

// RegistrarVoto applies the one-way enabled -> voted transition. Exactly one
// vote ever succeeds per papeletaId; a vote against an unknown, already voted
// or already closed papeleta gets the same failure reply. On success the
// enabling jurado is notified (best effort) and the automatic close is
// scheduled.
func (c *Coordinator) RegistrarVoto(id ConnID, voto models.PapeletaVoto) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender := c.conns[id]
	p, ok := c.papeletas[voto.PapeletaID]
	if !ok || p.votada {
		metrics.VotosTotal.WithLabelValues("rechazado").Inc()
		c.log.Warn("voto rechazado", zap.String("papeletaId", voto.PapeletaID))
		if sender != nil {
			sender.Send(models.EvVotoRegistrado, models.VotoRegistrado{
				PapeletaID: voto.PapeletaID,
				Exitoso:    false,
				Error:      "Papeleta no encontrada o ya cerrada",
			})
		}
		return
	}

	p.votada = true
	p.candidatoSeleccionado = voto.CandidatoID
	p.fechaVoto = voto.Timestamp
	p.votadaPor = id
	metrics.VotosTotal.WithLabelValues("aceptado").Inc()
	c.log.Info("voto registrado",
		zap.String("papeletaId", voto.PapeletaID),
		zap.Int("candidatoId", voto.CandidatoID))

	if sender != nil {
		sender.Send(models.EvVotoRegistrado, models.VotoRegistrado{
			PapeletaID: voto.PapeletaID,
			Exitoso:    true,
			Timestamp:  voto.Timestamp,
		})
	}

	// Best effort: the jurado may have disconnected since enabling.
	if origen, ok := c.jurados[p.origen]; ok {
		origen.sender.Send(models.EvPapeletaUtilizada, models.PapeletaUtilizada{
			PapeletaID:  voto.PapeletaID,
			CandidatoID: voto.CandidatoID,
			Timestamp:   voto.Timestamp,
			Votante:     p.datos.Votante.NombreCompleto(),
		})
	}

	papeletaID := voto.PapeletaID
	c.timers[papeletaID] = time.AfterFunc(c.closeDelay, func() {
		c.cerrar(papeletaID, "auto")
	})
}

// CerrarPapeleta removes the session and broadcasts papeleta_cerrada to all
// registered terminals of both roles. Closing an unknown papeleta is a no-op.
func (c *Coordinator) CerrarPapeleta(papeletaID string) {
	c.cerrar(papeletaID, "manual")
}

func (c *Coordinator) cerrar(papeletaID, motivo string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.papeletas[papeletaID]
	if !ok {
		return
	}
	delete(c.papeletas, papeletaID)
	if t, ok := c.timers[papeletaID]; ok {
		t.Stop() // harmless when the timer itself triggered this close
		delete(c.timers, papeletaID)
	}
	metrics.PapeletasCerradas.WithLabelValues(motivo).Inc()
	c.updateGauges()

	for _, t := range c.jurados {
		t.sender.Send(models.EvPapeletaCerrada, papeletaID)
	}
	for _, t := range c.votacion {
		t.sender.Send(models.EvPapeletaCerrada, papeletaID)
	}

	fields := []zap.Field{
		zap.String("papeletaId", papeletaID),
		zap.String("motivo", motivo),
		zap.Bool("votada", p.votada),
		zap.Duration("abierta", time.Since(p.habilitadaEn)),
	}
	if p.votada {
		fields = append(fields,
			zap.Int("candidatoSeleccionado", p.candidatoSeleccionado),
			zap.String("fechaVoto", p.fechaVoto),
			zap.String("maquinaVotacion", string(p.votadaPor)))
	}
	c.log.Info("papeleta cerrada", fields...)
}

// Estadisticas replies to the requesting terminal with current counts.
func (c *Coordinator) Estadisticas(id ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.conns[id]
	if !ok {
		return
	}
	s.Send(models.EvEstadisticasSistema, models.EstadisticasSistema{
		MaquinasJurado:   len(c.jurados),
		MaquinasVotacion: len(c.votacion),
		PapeletasActivas: len(c.papeletas),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns a snapshot for the health endpoint.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Total:            len(c.conns),
		Jurado:           len(c.jurados),
		Votacion:         len(c.votacion),
		PapeletasActivas: len(c.papeletas),
	}
}

// updateGauges must be called with c.mu held.
func (c *Coordinator) updateGauges() {
	metrics.ConnectionsOpen.Set(float64(len(c.conns)))
	metrics.TerminalsConnected.WithLabelValues("jurado").Set(float64(len(c.jurados)))
	metrics.TerminalsConnected.WithLabelValues("votacion").Set(float64(len(c.votacion)))
	metrics.PapeletasActivas.Set(float64(len(c.papeletas)))
}
