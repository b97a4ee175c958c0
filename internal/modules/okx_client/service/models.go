package service

// Сырые ответы OKX: все числа приходят строками.

type balanceData struct {
	TotalEq string `json:"totalEq"`
	Details []struct {
		Ccy string `json:"ccy"`
		Eq  string `json:"eq"`
	} `json:"details"`
}

type positionData struct {
	InstId  string `json:"instId"`
	PosId   string `json:"posId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
	MarkPx  string `json:"markPx"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
}

type instrumentData struct {
	InstID   string `json:"instId"`
	TickSz   string `json:"tickSz"`
	LotSz    string `json:"lotSz"`
	MinSz    string `json:"minSz"`
	CtVal    string `json:"ctVal"`
	CtMult   string `json:"ctMult"`
	State    string `json:"state"`
	MaxMktSz string `json:"maxMktSz"`

	CtType    string `json:"ctType"`    // linear / inverse
	CtValCcy  string `json:"ctValCcy"`  // BTC у linear, USD у inverse
	SettleCcy string `json:"settleCcy"` // USDT или монета
}

type markPriceData struct {
	InstId string `json:"instId"`
	MarkPx string `json:"markPx"`
}

type orderAck struct {
	OrdId   string `json:"ordId"`
	ClOrdId string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

type closeAck struct {
	InstId  string `json:"instId"`
	PosSide string `json:"posSide"`
	ClOrdId string `json:"clOrdId"`
}

type leverageAck struct {
	InstId  string `json:"instId"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
	PosSide string `json:"posSide"`
}

type accountConfigData struct {
	Uid     string `json:"uid"`
	MainUid string `json:"mainUid"`
	PosMode string `json:"posMode"` // long_short_mode / net_mode
	AcctLv  string `json:"acctLv"`
}

// AccountConfig — то, что нужно для проверки ключей на старте.
type AccountConfig struct {
	UID     string
	PosMode string
}
