package domain

// Bank is a row of the read-only bank directory. AlternateGatewayEligible
// marks banks whose cards are processed through the alternate VPOS.
type Bank struct {
	ID                       int64
	Name                     string
	AlternateGatewayEligible bool
	IsActive                 bool
}

// BinEntry maps a card BIN prefix to its issuing bank. Created by the batch
// import; read-only at payment time.
type BinEntry struct {
	BinCode string
	BankID  int64
}
