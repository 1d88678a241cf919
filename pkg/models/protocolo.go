package models

import "encoding/json"

// Event names shared with the jurado and votación terminals. These are the
// wire protocol; renaming any of them breaks every deployed terminal.
const (
	// terminal -> service
	EvRegistrarMaquinaJurado   = "registrar_maquina_jurado"
	EvRegistrarMaquinaVotacion = "registrar_maquina_votacion"
	EvHabilitarPapeleta        = "habilitar_papeleta"
	EvRegistrarVoto            = "registrar_voto"
	EvCerrarPapeleta           = "cerrar_papeleta"
	EvObtenerEstadisticas      = "obtener_estadisticas"

	// service -> terminal
	EvRegistroExitoso     = "registro_exitoso"
	EvPapeletaHabilitada  = "papeleta_habilitada"
	EvPapeletaEnviada     = "papeleta_enviada"
	EvVotoRegistrado      = "voto_registrado"
	EvPapeletaUtilizada   = "papeleta_utilizada"
	EvPapeletaCerrada     = "papeleta_cerrada"
	EvEstadisticasSistema = "estadisticas_sistema"
	EvError               = "error"
)

// Mensaje is the envelope for every message on a terminal connection.
// Datos is kept raw so each handler decodes its own payload; for
// papeleta_cerrada it is a bare JSON string (the papeletaId), not an object.
type Mensaje struct {
	Evento string          `json:"evento"`
	Datos  json.RawMessage `json:"datos,omitempty"`
}

// RegistroMaquina is the payload of both registration events. MaquinaID is
// chosen by the terminal (e.g. "jurado-<uuid>") and is advisory only.
type RegistroMaquina struct {
	MaquinaID string `json:"maquinaId"`
}

// RegistroExitoso acknowledges a registration.
type RegistroExitoso struct {
	Tipo      string `json:"tipo"`
	MaquinaID string `json:"maquinaId"`
	Mensaje   string `json:"mensaje"`
}

// PapeletaHabilitacion is the full ballot payload a jurado terminal sends
// with habilitar_papeleta and every votación terminal receives verbatim as
// papeleta_habilitada. PapeletaID is a UUID minted by the jurado terminal.
type PapeletaHabilitacion struct {
	PapeletaID      string      `json:"papeletaId"`
	Votante         Votante     `json:"votante"`
	Eleccion        Eleccion    `json:"eleccion"`
	Candidatos      []Candidato `json:"candidatos"`
	MaquinaJuradoID string      `json:"maquinaJuradoId"`
}

// PapeletaEnviada confirms the fan-out to the enabling jurado.
type PapeletaEnviada struct {
	PapeletaID         string `json:"papeletaId"`
	MaquinasReceptoras int    `json:"maquinasReceptoras"`
}

// PapeletaVoto is the payload of registrar_voto.
type PapeletaVoto struct {
	PapeletaID  string `json:"papeletaId"`
	CandidatoID int    `json:"candidatoId"`
	Timestamp   string `json:"timestamp"`
}

// VotoRegistrado is the reply to registrar_voto. Timestamp is echoed back
// on success; Error is set only when Exitoso is false.
type VotoRegistrado struct {
	PapeletaID string `json:"papeletaId"`
	Exitoso    bool   `json:"exitoso"`
	Timestamp  string `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PapeletaUtilizada notifies the enabling jurado that its ballot was voted.
type PapeletaUtilizada struct {
	PapeletaID  string `json:"papeletaId"`
	CandidatoID int    `json:"candidatoId"`
	Timestamp   string `json:"timestamp"`
	Votante     string `json:"votante"`
}

// CierrePapeleta is the payload of cerrar_papeleta.
type CierrePapeleta struct {
	PapeletaID string `json:"papeletaId"`
}

// EstadisticasSistema is the reply to obtener_estadisticas.
type EstadisticasSistema struct {
	MaquinasJurado   int    `json:"maquinasJurado"`
	MaquinasVotacion int    `json:"maquinasVotacion"`
	PapeletasActivas int    `json:"papeletasActivas"`
	Timestamp        string `json:"timestamp"`
}

// ErrorEvento is sent back when a message cannot be handled at all
// (invalid JSON, unknown event, missing required fields).
type ErrorEvento struct {
	Evento string `json:"evento,omitempty"`
	Error  string `json:"error"`
}
