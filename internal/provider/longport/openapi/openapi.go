// Package openapi opens longport sessions over the Longport OpenAPI Go SDK.
package openapi

import (
	"context"
	"fmt"

	lpconfig "github.com/longportapp/openapi-go/config"
	lpquote "github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"quotewatch/internal/provider/longport"
)

// Open is a longport.SessionFactory.
func Open(_ context.Context, creds longport.Credentials, httpURL string) (longport.Session, error) {
	opts := []lpconfig.Option{lpconfig.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken)}
	if httpURL != "" {
		opts = append(opts, lpconfig.WithHttpURL(httpURL))
	}
	conf, err := lpconfig.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	qctx, err := lpquote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("quote context: %w", err)
	}
	return &session{qctx: qctx}, nil
}

var _ longport.SessionFactory = Open

type session struct {
	qctx *lpquote.QuoteContext
}

func (s *session) Quote(ctx context.Context, symbols []string) ([]longport.SecurityQuote, error) {
	qs, err := s.qctx.Quote(ctx, symbols)
	if err != nil {
		return nil, err
	}
	out := make([]longport.SecurityQuote, 0, len(qs))
	for _, q := range qs {
		if q == nil {
			continue
		}
		out = append(out, longport.SecurityQuote{
			Symbol:     q.Symbol,
			LastDone:   fromSDK(q.LastDone),
			PrevClose:  fromSDK(q.PrevClose),
			High:       fromSDK(q.High),
			Low:        fromSDK(q.Low),
			PreMarket:  prePost(q.PreMarketQuote),
			PostMarket: prePost(q.PostMarketQuote),
			Overnight:  prePost(q.OverNightQuote),
		})
	}
	return out, nil
}

func (s *session) StaticInfo(ctx context.Context, symbols []string) ([]longport.StaticInfo, error) {
	infos, err := s.qctx.StaticInfo(ctx, symbols)
	if err != nil {
		return nil, err
	}
	out := make([]longport.StaticInfo, 0, len(infos))
	for _, in := range infos {
		if in == nil {
			continue
		}
		out = append(out, longport.StaticInfo{Symbol: in.Symbol, NameCn: in.NameCn, NameEn: in.NameEn})
	}
	return out, nil
}

func (s *session) Close() error { return s.qctx.Close() }

func prePost(p *lpquote.PrePostQuote) *longport.PrePost {
	if p == nil {
		return nil
	}
	d := fromSDK(p.LastDone)
	if d == nil {
		return nil
	}
	return &longport.PrePost{LastDone: *d}
}

// fromSDK converts an SDK decimal through its text form so the session does
// not depend on which decimal package the SDK was built with. The reported
// scale is kept.
func fromSDK[T any, PT interface {
	*T
	fmt.Stringer
	Exponent() int32
	StringFixed(places int32) string
}](v PT) *decimal.Decimal {
	if v == nil {
		return nil
	}
	s := v.String()
	if exp := v.Exponent(); exp < 0 {
		s = v.StringFixed(-exp)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
