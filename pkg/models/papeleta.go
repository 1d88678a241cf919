package models

// Votante is the public voter record attached to an enabled ballot.
// It is the padrón's public projection: no address, no documents.
type Votante struct {
	CI       int    `json:"ci"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Codigo   int    `json:"codigo"`
}

// NombreCompleto returns "nombre apellido", the form shown to the jurado
// when a ballot is used.
func (v Votante) NombreCompleto() string {
	return v.Nombre + " " + v.Apellido
}

// Eleccion identifies the election a ballot belongs to.
type Eleccion struct {
	ID          int    `json:"id"`
	Nombre      string `json:"nombre"`
	FechaInicio string `json:"fechaInicio"`
	FechaFin    string `json:"fechaFin"`
}

// Candidato is one entry of the ordered candidate list printed on a ballot.
type Candidato struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Partido  string `json:"partido"`
	Foto     string `json:"foto,omitempty"`
	Orden    int    `json:"orden"`
}
