package coordinator_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coordinador/pkg/coordinator"
	"coordinador/pkg/models"
)

const closeDelay = 25 * time.Millisecond

// fakeSender records every event the coordinator sends to one terminal.
// It must be safe for concurrent use: the auto-close timer broadcasts from
// its own goroutine.
type fakeSender struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	Evento string
	Datos  any
}

func (f *fakeSender) Send(evento string, datos any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{Evento: evento, Datos: datos})
}

func (f *fakeSender) byEvent(evento string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.Evento == evento {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeSender) count(evento string) int {
	return len(f.byEvent(evento))
}

func newTestCoordinator() *coordinator.Coordinator {
	return coordinator.New(closeDelay, zap.NewNop())
}

func attach(c *coordinator.Coordinator, id string) *fakeSender {
	s := &fakeSender{}
	c.Attach(coordinator.ConnID(id), s)
	return s
}

func habilitacion(papeletaID string) models.PapeletaHabilitacion {
	return models.PapeletaHabilitacion{
		PapeletaID: papeletaID,
		Votante:    models.Votante{CI: 7654321, Nombre: "Maria", Apellido: "Lopez", Codigo: 42},
		Eleccion:   models.Eleccion{ID: 1, Nombre: "Eleccion General"},
		Candidatos: []models.Candidato{
			{ID: 7, Nombre: "Juan", Apellido: "Perez", Partido: "MAS", Orden: 1},
			{ID: 9, Nombre: "Ana", Apellido: "Quispe", Partido: "CC", Orden: 2},
		},
		MaquinaJuradoID: "jurado-test",
	}
}

func TestRegisterJurado_Acknowledges(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")

	c.RegisterJurado("j1", "jurado-abc")

	acks := j1.byEvent(models.EvRegistroExitoso)
	require.Len(t, acks, 1)
	ack := acks[0].Datos.(models.RegistroExitoso)
	assert.Equal(t, "jurado", ack.Tipo)
	assert.Equal(t, "jurado-abc", ack.MaquinaID)
	assert.Equal(t, "Máquina del jurado registrada exitosamente", ack.Mensaje)
	assert.Equal(t, 1, c.Stats().Jurado)
}

func TestRegisterVotacion_Acknowledges(t *testing.T) {
	c := newTestCoordinator()
	v1 := attach(c, "v1")

	c.RegisterVotacion("v1", "votacion-abc")

	acks := v1.byEvent(models.EvRegistroExitoso)
	require.Len(t, acks, 1)
	ack := acks[0].Datos.(models.RegistroExitoso)
	assert.Equal(t, "votacion", ack.Tipo)
	assert.Equal(t, 1, c.Stats().Votacion)
}

func TestRegister_SameHandleOverwrites(t *testing.T) {
	c := newTestCoordinator()
	attach(c, "j1")

	c.RegisterJurado("j1", "jurado-a")
	c.RegisterJurado("j1", "jurado-b")

	assert.Equal(t, 1, c.Stats().Jurado, "re-registration must overwrite, not append")
}

func TestRegister_RoleSwitchKeepsSingleEntry(t *testing.T) {
	c := newTestCoordinator()
	attach(c, "t1")

	c.RegisterVotacion("t1", "votacion-a")
	c.RegisterJurado("t1", "jurado-a")

	st := c.Stats()
	assert.Equal(t, 1, st.Jurado)
	assert.Equal(t, 0, st.Votacion)
}

func TestHabilitarPapeleta_FanOutToAllVotacion(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	v2 := attach(c, "v2")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.RegisterVotacion("v2", "votacion-2")

	datos := habilitacion("p1")
	c.HabilitarPapeleta("j1", datos)

	for _, v := range []*fakeSender{v1, v2} {
		got := v.byEvent(models.EvPapeletaHabilitada)
		require.Len(t, got, 1)
		assert.Equal(t, datos, got[0].Datos.(models.PapeletaHabilitacion))
	}

	sent := j1.byEvent(models.EvPapeletaEnviada)
	require.Len(t, sent, 1)
	assert.Equal(t, models.PapeletaEnviada{PapeletaID: "p1", MaquinasReceptoras: 2}, sent[0].Datos)
	assert.Equal(t, 1, c.Stats().PapeletasActivas)
}

func TestHabilitarPapeleta_NoRetroactiveDelivery(t *testing.T) {
	c := newTestCoordinator()
	attach(c, "j1")
	c.RegisterJurado("j1", "jurado-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	// v2 registers after the fan-out already happened.
	v2 := attach(c, "v2")
	c.RegisterVotacion("v2", "votacion-2")

	assert.Zero(t, v2.count(models.EvPapeletaHabilitada))
}

func TestRegistrarVoto_SuccessNotifiesJurado(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 7, Timestamp: "T"})

	votos := v1.byEvent(models.EvVotoRegistrado)
	require.Len(t, votos, 1)
	assert.Equal(t, models.VotoRegistrado{PapeletaID: "p1", Exitoso: true, Timestamp: "T"}, votos[0].Datos)

	usadas := j1.byEvent(models.EvPapeletaUtilizada)
	require.Len(t, usadas, 1)
	assert.Equal(t, models.PapeletaUtilizada{
		PapeletaID:  "p1",
		CandidatoID: 7,
		Timestamp:   "T",
		Votante:     "Maria Lopez",
	}, usadas[0].Datos)
}

func TestRegistrarVoto_UnknownPapeletaFails(t *testing.T) {
	c := newTestCoordinator()
	v1 := attach(c, "v1")
	c.RegisterVotacion("v1", "votacion-1")

	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "nope", CandidatoID: 1, Timestamp: "T"})

	votos := v1.byEvent(models.EvVotoRegistrado)
	require.Len(t, votos, 1)
	reply := votos[0].Datos.(models.VotoRegistrado)
	assert.False(t, reply.Exitoso)
	assert.Equal(t, "Papeleta no encontrada o ya cerrada", reply.Error)
}

func TestRegistrarVoto_OnlyFirstVoteWins(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	v2 := attach(c, "v2")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.RegisterVotacion("v2", "votacion-2")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 7, Timestamp: "T1"})
	c.RegistrarVoto("v2", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 9, Timestamp: "T2"})

	winner := v1.byEvent(models.EvVotoRegistrado)[0].Datos.(models.VotoRegistrado)
	assert.True(t, winner.Exitoso)

	loser := v2.byEvent(models.EvVotoRegistrado)[0].Datos.(models.VotoRegistrado)
	assert.False(t, loser.Exitoso)
	assert.Equal(t, "Papeleta no encontrada o ya cerrada", loser.Error)

	// Exactly one papeleta_utilizada despite two vote attempts.
	assert.Equal(t, 1, j1.count(models.EvPapeletaUtilizada))
}

func TestRegistrarVoto_AutoCloseAfterDelay(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))
	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 7, Timestamp: "T"})

	require.Eventually(t, func() bool {
		return c.Stats().PapeletasActivas == 0
	}, 20*closeDelay, closeDelay/5, "papeleta should auto-close after the delay")

	// Both roles get the closure broadcast, payload is the bare id.
	for _, s := range []*fakeSender{j1, v1} {
		cerradas := s.byEvent(models.EvPapeletaCerrada)
		require.Len(t, cerradas, 1)
		assert.Equal(t, "p1", cerradas[0].Datos)
	}

	// A vote after closure fails the same way as for an unknown papeleta.
	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 7, Timestamp: "T2"})
	votos := v1.byEvent(models.EvVotoRegistrado)
	last := votos[len(votos)-1].Datos.(models.VotoRegistrado)
	assert.False(t, last.Exitoso)
}

func TestCerrarPapeleta_ExplicitBroadcastsBothRoles(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	c.CerrarPapeleta("p1")

	assert.Equal(t, 0, c.Stats().PapeletasActivas)
	assert.Equal(t, 1, j1.count(models.EvPapeletaCerrada))
	assert.Equal(t, 1, v1.count(models.EvPapeletaCerrada))
}

func TestCerrarPapeleta_AbsentIsNoOp(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	c.RegisterJurado("j1", "jurado-1")

	c.CerrarPapeleta("never-existed")

	assert.Zero(t, j1.count(models.EvPapeletaCerrada))
}

func TestRegistrarVoto_AfterJuradoDisconnect(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	v1 := attach(c, "v1")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	// The enabling jurado drops; its papeleta stays votable.
	c.Detach("j1")
	c.RegistrarVoto("v1", models.PapeletaVoto{PapeletaID: "p1", CandidatoID: 7, Timestamp: "T"})

	reply := v1.byEvent(models.EvVotoRegistrado)[0].Datos.(models.VotoRegistrado)
	assert.True(t, reply.Exitoso)
	assert.Zero(t, j1.count(models.EvPapeletaUtilizada), "notification to a gone jurado is skipped")
}

func TestDetach_RemovesFromCountsAndFanOut(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	attach(c, "v1")
	v2 := attach(c, "v2")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.RegisterVotacion("v2", "votacion-2")

	c.Detach("v2")

	st := c.Stats()
	assert.Equal(t, 1, st.Votacion)
	assert.Equal(t, 2, st.Total)

	c.HabilitarPapeleta("j1", habilitacion("p1"))
	sent := j1.byEvent(models.EvPapeletaEnviada)[0].Datos.(models.PapeletaEnviada)
	assert.Equal(t, 1, sent.MaquinasReceptoras)
	assert.Zero(t, v2.count(models.EvPapeletaHabilitada))
}

func TestEstadisticas_ReportsCounts(t *testing.T) {
	c := newTestCoordinator()
	j1 := attach(c, "j1")
	attach(c, "v1")
	c.RegisterJurado("j1", "jurado-1")
	c.RegisterVotacion("v1", "votacion-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	c.Estadisticas("j1")

	stats := j1.byEvent(models.EvEstadisticasSistema)
	require.Len(t, stats, 1)
	got := stats[0].Datos.(models.EstadisticasSistema)
	assert.Equal(t, 1, got.MaquinasJurado)
	assert.Equal(t, 1, got.MaquinasVotacion)
	assert.Equal(t, 1, got.PapeletasActivas)
	assert.NotEmpty(t, got.Timestamp)
}

func TestStats_TotalIncludesUnregistered(t *testing.T) {
	c := newTestCoordinator()
	attach(c, "anon")
	attach(c, "j1")
	c.RegisterJurado("j1", "jurado-1")

	st := c.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Jurado)
	assert.Equal(t, 0, st.Votacion)
}

func TestHabilitarPapeleta_NeverVotedStaysOpen(t *testing.T) {
	c := newTestCoordinator()
	attach(c, "j1")
	c.RegisterJurado("j1", "jurado-1")
	c.HabilitarPapeleta("j1", habilitacion("p1"))

	// No TTL for never-voted papeletas: still open well past the close delay.
	time.Sleep(4 * closeDelay)
	assert.Equal(t, 1, c.Stats().PapeletasActivas)
}
