// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stock

import (
	"github.com/stockparfait/errors"
	"github.com/stockparfait/tushare/tushare"
	"github.com/stockparfait/tushare/date"
)

// Exchange where the security is traded.
type Exchange uint8

const (
	SSE   Exchange = iota // Shanghai Stock Exchange
	SZSE                  // Shenzhen Stock Exchange
	CFFEX                 // China Financial Futures Exchange
	SHFE                  // Shanghai Futures Exchange
	CZCE                  // Zhengzhou Commodity Exchange
	DCE                   // Dalian Commodity Exchange
	INE                   // Shanghai International Energy Exchange
	BSE                   // Beijing Stock Exchange
)

// ExchangeAliases are the Tushare names of Exchange values.
var ExchangeAliases = tushare.Aliases{"SSE", "SZSE", "CFFEX", "SHFE", "CZCE", "DCE", "INE", "BSE"}

// Market is the board of the exchange the stock is listed on.
type Market uint8

const (
	MainBoard Market = iota // 主板
	SMEBoard                // 中小板, merged into the main board in 2021
	ChiNext                 // 创业板
	STARMarket              // 科创板
	CDRMarket               // Chinese depositary receipts
	BSEMarket               // 北交所
	MarketNA                // not assigned
)

// MarketAliases are the Tushare names of Market values.
var MarketAliases = tushare.Aliases{"主板", "中小板", "创业板", "科创板", "CDR", "北交所", ""}

// ListStatus of a stock.
type ListStatus uint8

const (
	Listed ListStatus = iota
	Delisted
	Suspended
)

// ListStatusAliases are the Tushare names of ListStatus values.
var ListStatusAliases = tushare.Aliases{"L", "D", "P"}

// Connect is the Stock Connect eligibility of a stock.
type Connect uint8

const (
	NotConnect      Connect = iota
	ShanghaiConnect         // Shanghai-Hong Kong Stock Connect
	ShenzhenConnect         // Shenzhen-Hong Kong Stock Connect
)

// ConnectAliases are the Tushare names of Connect values.
var ConnectAliases = tushare.Aliases{"N", "H", "S"}

// ConnectType is the Stock Connect program of a constituent.
type ConnectType uint8

const (
	ShanghaiConnectType ConnectType = iota
	ShenzhenConnectType
)

// ConnectTypeAliases are the Tushare names of ConnectType values.
var ConnectTypeAliases = tushare.Aliases{"SH", "SZ"}

// TradeStatus of a calendar day.
type TradeStatus uint8

const (
	Closed TradeStatus = iota
	Open
)

// TradeStatusAliases are the Tushare names of TradeStatus values.
var TradeStatusAliases = tushare.Aliases{"0", "1"}

// Gender of a manager.
type Gender uint8

const (
	Male Gender = iota
	Female
	GenderUnknown
)

// GenderAliases are the Tushare names of Gender values.
var GenderAliases = tushare.Aliases{"M", "F", ""}

func enumString(a tushare.Aliases, v int) string {
	s, err := a.Alias(v)
	if err != nil {
		return "unknown"
	}
	if s == "" {
		return "NA"
	}
	return s
}

func parseEnum(a tushare.Aliases, s, name string) (int, error) {
	if s == "NA" {
		s = ""
	}
	i := a.Index(s)
	if i < 0 {
		return 0, errors.Reason("unknown %s: '%s'; expected one of %v", name, s, []string(a))
	}
	return i, nil
}

func (e Exchange) String() string { return enumString(ExchangeAliases, int(e)) }

// MarshalText implements encoding.TextMarshaler.
func (e Exchange) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// ParseExchange from its Tushare name, e.g. "SSE".
func ParseExchange(s string) (Exchange, error) {
	i, err := parseEnum(ExchangeAliases, s, "exchange")
	return Exchange(i), err
}

func (m Market) String() string { return enumString(MarketAliases, int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m Market) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (s ListStatus) String() string { return enumString(ListStatusAliases, int(s)) }

// MarshalText implements encoding.TextMarshaler.
func (s ListStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseListStatus from its Tushare name: L, D or P.
func ParseListStatus(s string) (ListStatus, error) {
	i, err := parseEnum(ListStatusAliases, s, "list status")
	return ListStatus(i), err
}

func (c Connect) String() string { return enumString(ConnectAliases, int(c)) }

// MarshalText implements encoding.TextMarshaler.
func (c Connect) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseConnect from its Tushare name: N, H or S.
func ParseConnect(s string) (Connect, error) {
	i, err := parseEnum(ConnectAliases, s, "connect")
	return Connect(i), err
}

func (t ConnectType) String() string { return enumString(ConnectTypeAliases, int(t)) }

// MarshalText implements encoding.TextMarshaler.
func (t ConnectType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ParseConnectType from its Tushare name: SH or SZ.
func ParseConnectType(s string) (ConnectType, error) {
	i, err := parseEnum(ConnectTypeAliases, s, "connect type")
	return ConnectType(i), err
}

func (s TradeStatus) String() string { return enumString(TradeStatusAliases, int(s)) }

// MarshalText implements encoding.TextMarshaler.
func (s TradeStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (g Gender) String() string { return enumString(GenderAliases, int(g)) }

// MarshalText implements encoding.TextMarshaler.
func (g Gender) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// Stock is a row in the stock_basic table.
type Stock struct {
	TSCode      string     `json:"ts_code"` // e.g. 000001.SZ
	Symbol      string     `json:"symbol"`  // e.g. 000001
	Name        string     `json:"name"`
	Area        string     `json:"area"`
	Industry    string     `json:"industry"`
	FullName    string     `json:"fullname"`
	EnglishName string     `json:"enname"`
	Market      Market     `json:"market"`
	Exchange    Exchange   `json:"exchange"`
	Currency    string     `json:"curr_type"`
	ListStatus  ListStatus `json:"list_status"`
	ListDate    date.Date  `json:"list_date"`
	DelistDate  date.Date  `json:"delist_date"`
	Connect     Connect    `json:"is_hs"`
}

// StockSchema maps the stock_basic columns.
var StockSchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *Stock, v string) { r.TSCode = v }),
	tushare.String("symbol", func(r *Stock, v string) { r.Symbol = v }),
	tushare.String("name", func(r *Stock, v string) { r.Name = v }),
	tushare.String("area", func(r *Stock, v string) { r.Area = v }),
	tushare.String("industry", func(r *Stock, v string) { r.Industry = v }),
	tushare.String("fullname", func(r *Stock, v string) { r.FullName = v }),
	tushare.String("enname", func(r *Stock, v string) { r.EnglishName = v }),
	tushare.Enum("market", MarketAliases, func(r *Stock, v Market) { r.Market = v }),
	tushare.Enum("exchange", ExchangeAliases, func(r *Stock, v Exchange) { r.Exchange = v }),
	tushare.String("curr_type", func(r *Stock, v string) { r.Currency = v }),
	tushare.Enum("list_status", ListStatusAliases, func(r *Stock, v ListStatus) { r.ListStatus = v }),
	tushare.Date("list_date", func(r *Stock, v date.Date) { r.ListDate = v }),
	tushare.Date("delist_date", func(r *Stock, v date.Date) { r.DelistDate = v }),
	tushare.Enum("is_hs", ConnectAliases, func(r *Stock, v Connect) { r.Connect = v }),
)

// TradeDay is a row in the trade_cal table.
type TradeDay struct {
	Exchange     Exchange    `json:"exchange"`
	Date         date.Date   `json:"cal_date"`
	Status       TradeStatus `json:"is_open"`
	PreviousDate date.Date   `json:"pretrade_date"` // the previous trading day
}

// TradeDaySchema maps the trade_cal columns.
var TradeDaySchema = tushare.NewSchema(
	tushare.Enum("exchange", ExchangeAliases, func(r *TradeDay, v Exchange) { r.Exchange = v }),
	tushare.Date("cal_date", func(r *TradeDay, v date.Date) { r.Date = v }),
	tushare.Enum("is_open", TradeStatusAliases, func(r *TradeDay, v TradeStatus) { r.Status = v }),
	tushare.Date("pretrade_date", func(r *TradeDay, v date.Date) { r.PreviousDate = v }),
)

// NameHistory is a row in the namechange table.
type NameHistory struct {
	TSCode           string    `json:"ts_code"`
	Name             string    `json:"name"`
	StartDate        date.Date `json:"start_date"`
	EndDate          date.Date `json:"end_date"` // zero if still in use
	AnnouncementDate date.Date `json:"ann_date"`
	Reason           string    `json:"change_reason"`
}

// NameHistorySchema maps the namechange columns.
var NameHistorySchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *NameHistory, v string) { r.TSCode = v }),
	tushare.String("name", func(r *NameHistory, v string) { r.Name = v }),
	tushare.Date("start_date", func(r *NameHistory, v date.Date) { r.StartDate = v }),
	tushare.Date("end_date", func(r *NameHistory, v date.Date) { r.EndDate = v }),
	tushare.Date("ann_date", func(r *NameHistory, v date.Date) { r.AnnouncementDate = v }),
	tushare.String("change_reason", func(r *NameHistory, v string) { r.Reason = v }),
)

// ConnectConstituent is a row in the hs_const table.
type ConnectConstituent struct {
	TSCode        string      `json:"ts_code"`
	Type          ConnectType `json:"hs_type"`
	InclusionDate date.Date   `json:"in_date"`
	ExclusionDate date.Date   `json:"out_date"`
}

// ConnectConstituentSchema maps the hs_const columns.
var ConnectConstituentSchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *ConnectConstituent, v string) { r.TSCode = v }),
	tushare.Enum("hs_type", ConnectTypeAliases, func(r *ConnectConstituent, v ConnectType) { r.Type = v }),
	tushare.Date("in_date", func(r *ConnectConstituent, v date.Date) { r.InclusionDate = v }),
	tushare.Date("out_date", func(r *ConnectConstituent, v date.Date) { r.ExclusionDate = v }),
)

// Company is a row in the stock_company table.
type Company struct {
	TSCode            string    `json:"ts_code"`
	Exchange          Exchange  `json:"exchange"`
	Chairman          string    `json:"chairman"` // legal representative
	Manager           string    `json:"manager"`
	Secretary         string    `json:"secretary"`
	RegisteredCapital float32   `json:"reg_capital"` // in 10,000 CNY
	SetupDate         date.Date `json:"setup_date"`
	Province          string    `json:"province"`
	City              string    `json:"city"`
	Introduction      string    `json:"introduction"`
	Website           string    `json:"website"`
	Email             string    `json:"email"`
	Office            string    `json:"office"`
	Employees         int       `json:"employees"`
	MainBusiness      string    `json:"main_business"`
	BusinessScope     string    `json:"business_scope"`
}

// CompanySchema maps the stock_company columns.
var CompanySchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *Company, v string) { r.TSCode = v }),
	tushare.Enum("exchange", ExchangeAliases, func(r *Company, v Exchange) { r.Exchange = v }),
	tushare.String("chairman", func(r *Company, v string) { r.Chairman = v }),
	tushare.String("manager", func(r *Company, v string) { r.Manager = v }),
	tushare.String("secretary", func(r *Company, v string) { r.Secretary = v }),
	tushare.Float("reg_capital", func(r *Company, v float32) { r.RegisteredCapital = v }),
	tushare.Date("setup_date", func(r *Company, v date.Date) { r.SetupDate = v }),
	tushare.String("province", func(r *Company, v string) { r.Province = v }),
	tushare.String("city", func(r *Company, v string) { r.City = v }),
	tushare.String("introduction", func(r *Company, v string) { r.Introduction = v }),
	tushare.String("website", func(r *Company, v string) { r.Website = v }),
	tushare.String("email", func(r *Company, v string) { r.Email = v }),
	tushare.String("office", func(r *Company, v string) { r.Office = v }),
	tushare.Int("employees", func(r *Company, v int) { r.Employees = v }),
	tushare.String("main_business", func(r *Company, v string) { r.MainBusiness = v }),
	tushare.String("business_scope", func(r *Company, v string) { r.BusinessScope = v }),
)

// Manager is a row in the stk_managers table.
type Manager struct {
	TSCode           string    `json:"ts_code"`
	AnnouncementDate date.Date `json:"ann_date"`
	Name             string    `json:"name"`
	Gender           Gender    `json:"gender"`
	Level            string    `json:"lev"` // position category
	Title            string    `json:"title"`
	Education        string    `json:"edu"`
	Nationality      string    `json:"national"`
	Birthday         date.Date `json:"birthday"`
	BeginDate        date.Date `json:"begin_date"`
	EndDate          date.Date `json:"end_date"`
	Resume           string    `json:"resume"`
}

// ManagerSchema maps the stk_managers columns.
var ManagerSchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *Manager, v string) { r.TSCode = v }),
	tushare.Date("ann_date", func(r *Manager, v date.Date) { r.AnnouncementDate = v }),
	tushare.String("name", func(r *Manager, v string) { r.Name = v }),
	tushare.Enum("gender", GenderAliases, func(r *Manager, v Gender) { r.Gender = v }),
	tushare.String("lev", func(r *Manager, v string) { r.Level = v }),
	tushare.String("title", func(r *Manager, v string) { r.Title = v }),
	tushare.String("edu", func(r *Manager, v string) { r.Education = v }),
	tushare.String("national", func(r *Manager, v string) { r.Nationality = v }),
	tushare.Date("birthday", func(r *Manager, v date.Date) { r.Birthday = v }),
	tushare.Date("begin_date", func(r *Manager, v date.Date) { r.BeginDate = v }),
	tushare.Date("end_date", func(r *Manager, v date.Date) { r.EndDate = v }),
	tushare.String("resume", func(r *Manager, v string) { r.Resume = v }),
)

// ManagerRewards is a row in the stk_rewards table.
type ManagerRewards struct {
	TSCode           string    `json:"ts_code"`
	AnnouncementDate date.Date `json:"ann_date"`
	EndDate          date.Date `json:"end_date"` // the reporting period
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Reward           float32   `json:"reward"`   // in CNY
	Holding          float32   `json:"hold_vol"` // number of shares held
}

// ManagerRewardsSchema maps the stk_rewards columns.
var ManagerRewardsSchema = tushare.NewSchema(
	tushare.String("ts_code", func(r *ManagerRewards, v string) { r.TSCode = v }),
	tushare.Date("ann_date", func(r *ManagerRewards, v date.Date) { r.AnnouncementDate = v }),
	tushare.Date("end_date", func(r *ManagerRewards, v date.Date) { r.EndDate = v }),
	tushare.String("name", func(r *ManagerRewards, v string) { r.Name = v }),
	tushare.String("title", func(r *ManagerRewards, v string) { r.Title = v }),
	tushare.Float("reward", func(r *ManagerRewards, v float32) { r.Reward = v }),
	tushare.Float("hold_vol", func(r *ManagerRewards, v float32) { r.Holding = v }),
)

// ManagerWithRewards joins a manager with their rewards record.
type ManagerWithRewards struct {
	Manager Manager        `json:"manager"`
	Rewards ManagerRewards `json:"rewards"`
}
