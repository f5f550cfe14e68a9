package entity

import "time"

// Client representa um cliente do cadastro (referenciado pelos documentos
// fiscais; o CRUD de clientes é tela do console, fora deste núcleo).
type Client struct {
	ID           string
	Name         string
	TaxID        string // CPF ou CNPJ
	Email        string
	Phone        string
	Municipality string // código IBGE do município (NFS-e)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
