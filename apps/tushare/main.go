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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/tushare/tushare"
	"github.com/stockparfait/tushare/date"
	"github.com/stockparfait/tushare/stock"
	"github.com/stockparfait/tushare/table"

	toml "github.com/pelletier/go-toml/v2"
)

// paramsFlag collects repeated -param key=value flags.
type paramsFlag map[string]string

var _ flag.Value = paramsFlag{}

func (p paramsFlag) String() string {
	var kv []string
	for k, v := range p {
		kv = append(kv, k+"="+v)
	}
	return strings.Join(kv, ",")
}

func (p paramsFlag) Set(s string) error {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || kv[0] == "" {
		return errors.Reason("expected key=value, got '%s'", s)
	}
	p[kv[0]] = kv[1]
	return nil
}

type Flags struct {
	ConfigDir string // default: ~/.tushare
	LogLevel  logging.Level
	// Exactly one of the commands must be present.
	Stocks    string // list status: L, D or P
	Code      string // TS code of a single stock
	Calendar  string // exchange, e.g. SSE
	Companies string // comma separated TS codes
	Managers  string // comma separated TS codes
	Raw       string // API name
	// Command arguments.
	Start  date.Date // for -calendar
	End    date.Date // for -calendar
	Params paramsFlag
	Fields string // comma separated, for -raw
	Limit  int    // page size for -raw
}

func parseFlags(args []string) (*Flags, error) {
	flags := Flags{Params: paramsFlag{}}
	fs := flag.NewFlagSet("tushare", flag.ExitOnError)
	fs.StringVar(&flags.ConfigDir, "config",
		filepath.Join(os.Getenv("HOME"), ".tushare"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Stocks, "stocks", "", "list stocks by status: L, D or P")
	fs.StringVar(&flags.Code, "code", "", "print the stock by its TS code")
	fs.StringVar(&flags.Calendar, "calendar", "", "print the trade calendar of the exchange")
	fs.StringVar(&flags.Companies, "companies", "", "print companies by comma separated TS codes")
	fs.StringVar(&flags.Managers, "managers", "",
		"print managers with rewards by comma separated TS codes")
	fs.StringVar(&flags.Raw, "raw", "", "print the raw table of the API in CSV format")
	var start, end string
	fs.StringVar(&start, "start", "", "start date YYYYMMDD for -calendar")
	fs.StringVar(&end, "end", "", "end date YYYYMMDD for -calendar")
	fs.Var(flags.Params, "param", "key=value parameter for -raw, may be repeated")
	fs.StringVar(&flags.Fields, "fields", "", "comma separated columns for -raw")
	fs.IntVar(&flags.Limit, "limit", 0, "page size for -raw; 0 = single page")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	commands := 0
	for _, c := range []string{flags.Stocks, flags.Code, flags.Calendar,
		flags.Companies, flags.Managers, flags.Raw} {
		if c != "" {
			commands++
		}
	}
	if commands != 1 {
		return nil, errors.Reason("expected exactly one of -stocks, -code, " +
			"-calendar, -companies, -managers or -raw")
	}
	if start != "" {
		if flags.Start, err = date.NewDateFromString(start); err != nil {
			return nil, errors.Annotate(err, "invalid -start")
		}
	}
	if end != "" {
		if flags.End, err = date.NewDateFromString(end); err != nil {
			return nil, errors.Annotate(err, "invalid -end")
		}
	}
	return &flags, nil
}

type Config struct {
	Token    string `toml:"token"`     // Tushare Pro API token
	URL      string `toml:"url"`       // default: http://api.tushare.pro
	Timeout  int    `toml:"timeout"`   // seconds; default: 60
	Retries  int    `toml:"retries"`   // on network and server errors
	CacheTTL int    `toml:"cache_ttl"` // seconds; 0 = no cache
}

func parseConfig(dir string) (*Config, error) {
	filePath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `token = "YourSecretTushareToken"
retries = 2
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.Token == "" {
		return nil, errors.Reason("token is missing in %s", filePath)
	}
	return &c, nil
}

func newClient(c *Config) *tushare.Client {
	var opts []tushare.Option
	if c.URL != "" {
		opts = append(opts, tushare.WithURL(c.URL))
	}
	if c.Timeout > 0 {
		opts = append(opts, tushare.WithTimeout(time.Duration(c.Timeout)*time.Second))
	}
	if c.Retries > 0 {
		opts = append(opts, tushare.WithRetries(c.Retries))
	}
	if c.CacheTTL > 0 {
		opts = append(opts, tushare.WithCache(time.Duration(c.CacheTTL)*time.Second))
	}
	return tushare.NewClient(c.Token, opts...)
}

// writeJSON writes one record per line. Malformed rows have already been
// logged, and the remaining records are still written.
func writeJSON[T any](ctx context.Context, w io.Writer, records []T, err error) error {
	if err != nil {
		if _, ok := err.(tushare.MalformedRowsError); !ok {
			return err
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return errors.Annotate(err, "failed to write JSON")
		}
	}
	logging.Debugf(ctx, "wrote %d records", len(records))
	return nil
}

func printRaw(ctx context.Context, flags *Flags, w io.Writer) error {
	q := tushare.NewQuery(flags.Raw)
	for k, v := range flags.Params {
		q = q.Param(k, v)
	}
	if flags.Fields != "" {
		q = q.Fields(stock.SplitCodes(flags.Fields)...)
	}
	c := tushare.GetClient(ctx)
	tbl := table.NewTable()
	offset := 0
	for {
		resp, err := c.Do(ctx, q.Limit(flags.Limit).Offset(offset).Request())
		if err != nil {
			return err
		}
		if resp.Code != tushare.CodeOK {
			return &tushare.DataUnavailableError{Code: resp.Code, Message: resp.Message}
		}
		page := table.FromTushare(resp.Data)
		if offset == 0 {
			tbl.Header = page.Header
		}
		tbl.AddRow(page.Rows...)
		offset += len(page.Rows)
		if flags.Limit == 0 || resp.Data == nil || !resp.Data.HasMore || len(page.Rows) == 0 {
			break
		}
	}
	if err := tbl.WriteCSV(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print CSV")
	}
	return nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.ConfigDir)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	ctx = tushare.UseClient(ctx, newClient(config))
	api := stock.NewAPI(tushare.GetClient(ctx))

	switch {
	case flags.Stocks != "":
		s, err := stock.ParseListStatus(flags.Stocks)
		if err != nil {
			return err
		}
		res, err := api.StocksByStatus(ctx, s)
		return writeJSON(ctx, w, res, err)
	case flags.Code != "":
		s, err := api.StockByCode(ctx, flags.Code)
		if err != nil {
			return err
		}
		return writeJSON(ctx, w, []stock.Stock{*s}, nil)
	case flags.Calendar != "":
		e, err := stock.ParseExchange(flags.Calendar)
		if err != nil {
			return err
		}
		res, err := api.TradeCalendar(ctx, e, flags.Start, flags.End)
		return writeJSON(ctx, w, res, err)
	case flags.Companies != "":
		res, err := api.Companies(ctx, stock.SplitCodes(flags.Companies)...)
		return writeJSON(ctx, w, res, err)
	case flags.Managers != "":
		res, err := api.ManagersWithRewards(ctx, stock.SplitCodes(flags.Managers)...)
		return writeJSON(ctx, w, res, err)
	case flags.Raw != "":
		return printRaw(ctx, flags, w)
	}
	return errors.Reason("no command")
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
