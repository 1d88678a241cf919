package ws

import (
	"encoding/json"

	"go.uber.org/zap"

	"coordinador/pkg/metrics"
	"coordinador/pkg/models"
)

// dispatch decodes one inbound envelope and routes it to the coordinator.
// A message that cannot be handled at all gets an error reply to this
// terminal only; it never disturbs other terminals or open papeletas.
func (c *Client) dispatch(raw []byte) {
	var msg models.Mensaje
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.EventosRecibidos.WithLabelValues("invalido").Inc()
		c.replyError("", "mensaje inválido: se esperaba JSON {evento, datos}")
		return
	}

	switch msg.Evento {
	case models.EvRegistrarMaquinaJurado:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		var datos models.RegistroMaquina
		if err := json.Unmarshal(msg.Datos, &datos); err != nil || datos.MaquinaID == "" {
			c.replyError(msg.Evento, "maquinaId es requerido")
			return
		}
		c.coord.RegisterJurado(c.id, datos.MaquinaID)

	case models.EvRegistrarMaquinaVotacion:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		var datos models.RegistroMaquina
		if err := json.Unmarshal(msg.Datos, &datos); err != nil || datos.MaquinaID == "" {
			c.replyError(msg.Evento, "maquinaId es requerido")
			return
		}
		c.coord.RegisterVotacion(c.id, datos.MaquinaID)

	case models.EvHabilitarPapeleta:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		var datos models.PapeletaHabilitacion
		if err := json.Unmarshal(msg.Datos, &datos); err != nil || datos.PapeletaID == "" {
			c.replyError(msg.Evento, "papeletaId es requerido")
			return
		}
		c.coord.HabilitarPapeleta(c.id, datos)

	case models.EvRegistrarVoto:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		var voto models.PapeletaVoto
		if err := json.Unmarshal(msg.Datos, &voto); err != nil || voto.PapeletaID == "" || voto.CandidatoID == 0 {
			c.replyError(msg.Evento, "papeletaId y candidatoId son requeridos")
			return
		}
		c.coord.RegistrarVoto(c.id, voto)

	case models.EvCerrarPapeleta:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		var datos models.CierrePapeleta
		if err := json.Unmarshal(msg.Datos, &datos); err != nil || datos.PapeletaID == "" {
			c.replyError(msg.Evento, "papeletaId es requerido")
			return
		}
		c.coord.CerrarPapeleta(datos.PapeletaID)

	case models.EvObtenerEstadisticas:
		metrics.EventosRecibidos.WithLabelValues(msg.Evento).Inc()
		c.coord.Estadisticas(c.id)

	default:
		metrics.EventosRecibidos.WithLabelValues("desconocido").Inc()
		c.replyError(msg.Evento, "evento desconocido")
	}
}

func (c *Client) replyError(evento, detalle string) {
	c.log.Warn("evento rechazado",
		zap.String("evento", evento), zap.String("detalle", detalle))
	c.Send(models.EvError, models.ErrorEvento{Evento: evento, Error: detalle})
}
