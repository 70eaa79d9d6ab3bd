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

// Package stock fetches basic data on Shanghai and Shenzhen stocks from
// Tushare Pro.
package stock

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/tushare/tushare"
	"github.com/stockparfait/tushare/date"
)

// Tushare API names.
const (
	StockBasicAPI    = "stock_basic"
	TradeCalendarAPI = "trade_cal"
	NameChangeAPI    = "namechange"
	ConnectAPI       = "hs_const"
	CompanyAPI       = "stock_company"
	ManagersAPI      = "stk_managers"
	RewardsAPI       = "stk_rewards"
)

// API for the stock data endpoints.
type API struct {
	client *tushare.Client
}

// NewAPI creates a new API using the client.
func NewAPI(c *tushare.Client) *API {
	return &API{client: c}
}

// read all the records of the query. Errors of the tushare package are
// returned as is, and malformed rows are logged.
func read[T any](ctx context.Context, a *API, q *tushare.Query, s *tushare.Schema[T]) ([]T, error) {
	res, err := tushare.ReadAll(ctx, a.client, q, s)
	switch err.(type) {
	case nil, *tushare.DataUnavailableError, *tushare.MalformedFieldError:
		return res, err
	case tushare.MalformedRowsError:
		logging.Warningf(ctx, "%s: %s", q.API(), err.Error())
		return res, err
	}
	return nil, errors.Annotate(err, "failed to read %s", q.API())
}

func alias(a tushare.Aliases, v int) string {
	s, err := a.Alias(v)
	if err != nil {
		// Enum values are only created from aliases, this is a programming error.
		panic(err)
	}
	return s
}

func (a *API) stocks(ctx context.Context, q *tushare.Query) ([]Stock, error) {
	return read(ctx, a, q, StockSchema)
}

// StockByCode fetches a single stock by its TS code, e.g. 000001.SZ.
func (a *API) StockByCode(ctx context.Context, code string) (*Stock, error) {
	res, err := a.stocks(ctx, tushare.NewQuery(StockBasicAPI).Equal("ts_code", code))
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.Reason("stock %s not found", code)
	}
	return &res[0], nil
}

// StocksByStatus fetches all stocks with the list status.
func (a *API) StocksByStatus(ctx context.Context, s ListStatus) ([]Stock, error) {
	return a.stocks(ctx, tushare.NewQuery(StockBasicAPI).
		Param("list_status", alias(ListStatusAliases, int(s))))
}

// StocksByExchange fetches all stocks of the exchange.
func (a *API) StocksByExchange(ctx context.Context, e Exchange) ([]Stock, error) {
	return a.stocks(ctx, tushare.NewQuery(StockBasicAPI).
		Param("exchange", alias(ExchangeAliases, int(e))))
}

// StocksByConnect fetches all stocks with the Stock Connect status.
func (a *API) StocksByConnect(ctx context.Context, c Connect) ([]Stock, error) {
	return a.stocks(ctx, tushare.NewQuery(StockBasicAPI).
		Param("is_hs", alias(ConnectAliases, int(c))))
}

func calendarQuery(e Exchange, start, end date.Date) *tushare.Query {
	return tushare.NewQuery(TradeCalendarAPI).
		Param("exchange", alias(ExchangeAliases, int(e))).
		Date("start_date", start).
		Date("end_date", end)
}

// TradeCalendar fetches the calendar days of the exchange in [start..end].
func (a *API) TradeCalendar(ctx context.Context, e Exchange, start, end date.Date) ([]TradeDay, error) {
	return read(ctx, a, calendarQuery(e, start, end), TradeDaySchema)
}

// TradeCalendarByStatus is TradeCalendar with only the days of the given
// status, e.g. only trading days.
func (a *API) TradeCalendarByStatus(ctx context.Context, e Exchange, start, end date.Date, s TradeStatus) ([]TradeDay, error) {
	q := calendarQuery(e, start, end).Param("is_open", alias(TradeStatusAliases, int(s)))
	return read(ctx, a, q, TradeDaySchema)
}

type calendarResult struct {
	exchange Exchange
	days     []TradeDay
	err      error
}

// TradeCalendars fetches the calendars of several exchanges in parallel.
func (a *API) TradeCalendars(ctx context.Context, start, end date.Date, exchanges ...Exchange) (map[Exchange][]TradeDay, error) {
	f := func(e Exchange) calendarResult {
		days, err := a.TradeCalendar(ctx, e, start, end)
		return calendarResult{exchange: e, days: days, err: err}
	}
	pm := iterator.ParallelMap(ctx, 2*runtime.NumCPU(), iterator.FromSlice(exchanges), f)
	defer pm.Close()

	var err error
	res := iterator.Reduce[calendarResult, map[Exchange][]TradeDay](
		pm, map[Exchange][]TradeDay{},
		func(r calendarResult, m map[Exchange][]TradeDay) map[Exchange][]TradeDay {
			if r.err != nil {
				if err == nil {
					err = errors.Annotate(r.err, "calendar of %s", r.exchange)
				}
				return m
			}
			m[r.exchange] = r.days
			return m
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NameChanges fetches the history of names of the stock.
func (a *API) NameChanges(ctx context.Context, code string) ([]NameHistory, error) {
	return read(ctx, a, tushare.NewQuery(NameChangeAPI).Equal("ts_code", code), NameHistorySchema)
}

// ConnectConstituents fetches the constituents of the Stock Connect program.
func (a *API) ConnectConstituents(ctx context.Context, t ConnectType) ([]ConnectConstituent, error) {
	q := tushare.NewQuery(ConnectAPI).Param("hs_type", alias(ConnectTypeAliases, int(t)))
	return read(ctx, a, q, ConnectConstituentSchema)
}

// Companies fetches the listed companies by their TS codes.
func (a *API) Companies(ctx context.Context, codes ...string) ([]Company, error) {
	return read(ctx, a, tushare.NewQuery(CompanyAPI).Equal("ts_code", codes...), CompanySchema)
}

// CompaniesByExchange fetches all the listed companies of the exchange.
func (a *API) CompaniesByExchange(ctx context.Context, e Exchange) ([]Company, error) {
	q := tushare.NewQuery(CompanyAPI).Param("exchange", alias(ExchangeAliases, int(e)))
	return read(ctx, a, q, CompanySchema)
}

// Managers fetches the managers of the companies by TS codes.
func (a *API) Managers(ctx context.Context, codes ...string) ([]Manager, error) {
	return read(ctx, a, tushare.NewQuery(ManagersAPI).Equal("ts_code", codes...), ManagerSchema)
}

// ManagerRewards fetches the rewards and holdings of the managers of the
// companies by TS codes.
func (a *API) ManagerRewards(ctx context.Context, codes ...string) ([]ManagerRewards, error) {
	return read(ctx, a, tushare.NewQuery(RewardsAPI).Equal("ts_code", codes...), ManagerRewardsSchema)
}

// ManagersWithRewards fetches managers and their rewards concurrently and
// joins each manager with the first rewards record of the same company and
// name. Managers without rewards are skipped. Malformed rows of either table
// are dropped with a warning.
func (a *API) ManagersWithRewards(ctx context.Context, codes ...string) ([]ManagerWithRewards, error) {
	var managers []Manager
	var rewards []ManagerRewards
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		managers, err = a.Managers(gctx, codes...)
		return ignoreMalformedRows(err)
	})
	eg.Go(func() error {
		var err error
		rewards, err = a.ManagerRewards(gctx, codes...)
		return ignoreMalformedRows(err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	byName := make(map[string]ManagerRewards, len(rewards))
	for _, r := range rewards {
		k := managerKey(r.TSCode, r.Name)
		if _, ok := byName[k]; !ok {
			byName[k] = r
		}
	}
	res := []ManagerWithRewards{}
	for _, m := range managers {
		r, ok := byName[managerKey(m.TSCode, m.Name)]
		if !ok {
			logging.Debugf(ctx, "no rewards for %s of %s", m.Name, m.TSCode)
			continue
		}
		res = append(res, ManagerWithRewards{Manager: m, Rewards: r})
	}
	return res, nil
}

// managerKey identifies a person within a company, as names repeat across
// companies.
func managerKey(code, name string) string {
	return code + "\x00" + name
}

func ignoreMalformedRows(err error) error {
	if _, ok := err.(tushare.MalformedRowsError); ok {
		return nil
	}
	return err
}

// SplitCodes parses a comma separated list of TS codes.
func SplitCodes(s string) []string {
	var res []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			res = append(res, c)
		}
	}
	return res
}
