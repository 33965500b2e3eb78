package erp

import "github.com/shopspring/decimal"

// Sale is the back-office sale document created for a marketplace order.
type Sale struct {
	ID          string `json:"id"`
	Code        string `json:"codigo"`
	SituationID int    `json:"situacao_id"`
}

// SaleCreateParams carries everything needed to open a sale.
type SaleCreateParams struct {
	IdempotencyKey string
	CustomerID     string
	LocationID     string
	Kind           string
	SituationID    int
	Reference      string
	DeliveryFee    decimal.Decimal
	Items          []SaleItem
}

type SaleItem struct {
	ExternalCode string          `json:"codigo"`
	Description  string          `json:"descricao"`
	Quantity     int             `json:"quantidade"`
	UnitPrice    decimal.Decimal `json:"valor_unitario"`
}

type saleCreateBody struct {
	ClienteID  string          `json:"cliente_id"`
	LojaID     string          `json:"loja_id,omitempty"`
	Tipo       string          `json:"tipo"`
	SituacaoID int             `json:"situacao_id"`
	Referencia string          `json:"referencia,omitempty"`
	ValorFrete decimal.Decimal `json:"valor_frete"`
	Itens      []SaleItem      `json:"itens"`
}

type saleUpdateBody struct {
	SituacaoID int `json:"situacao_id"`
}

// Customer is a back-office customer record.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"nome"`
	Document string `json:"cpf_cnpj"`
	Phone    string `json:"telefone"`
	Kind     string `json:"tipo_pessoa"`
}

// CustomerCreateParams feeds customer creation; Kind is derived from the
// document when empty.
type CustomerCreateParams struct {
	Name     string `json:"nome"`
	Document string `json:"cpf_cnpj,omitempty"`
	Phone    string `json:"telefone,omitempty"`
	Kind     string `json:"tipo_pessoa"`
}

// person kinds, chosen by document digit count (11 = CPF, 14 = CNPJ)
const (
	PersonKindIndividual = "PF"
	PersonKindCompany    = "PJ"
	PersonKindForeign    = "ES"
)

// MovementParams records one stock movement in the back-office ledger.
type MovementParams struct {
	LocationID   string `json:"loja_id"`
	ExternalCode string `json:"codigo"`
	Quantity     int    `json:"quantidade"`
	Kind         string `json:"tipo"`
	Note         string `json:"observacao,omitempty"`
}

const (
	MovementOut = "S"
	MovementIn  = "E"
)

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

type itemEnvelope[T any] struct {
	Data T `json:"data"`
}
