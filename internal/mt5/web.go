package mt5

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/bytedance/sonic"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_authURL        = "/api/auth/start"
	_groupTotalURL  = "/api/group/total"
	_groupNextURL   = "/api/group/next"
	_userURL        = "/api/user/get"
	_userBatchURL   = "/api/user/get_batch"
	_userAccountURL = "/api/user/account/get"
	_positionsURL   = "/api/position/get_batch"
	_dealsURL       = "/api/deal/get_batch"
)

// WebDialer opens sessions through the manager web gateway.
type WebDialer struct {
	gatewayURL  string
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

func NewWebDialer(gatewayURL string, perMinute int, logger logger.Logger) *WebDialer {
	return &WebDialer{
		gatewayURL:  gatewayURL,
		rateLimiter: ratelimit.New(perMinute, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (d *WebDialer) Dial(ctx context.Context, creds Credentials, mode PumpMode, timeout time.Duration) (Session, error) {
	client := resty.New().
		SetLogger(d.logger).
		SetBaseURL(d.gatewayURL).
		SetTimeout(timeout)

	d.rateLimiter.Take()
	var env envelope
	resp, err := client.R().
		SetBody(authRequest{
			Server:   creds.Address(),
			Login:    creds.Login,
			Password: creds.Password,
			PumpMode: int(mode),
			Timeout:  int(timeout.Seconds()),
		}).
		SetResult(&env).
		SetError(&env).
		SetContext(ctx).
		Post(_authURL)
	if err != nil {
		return nil, &ConnectionError{Code: CodeNetwork, Message: err.Error(), Err: err}
	}

	d.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if env.Retcode != "" {
		if code, text := parseRetcode(env.Retcode); code != RetcodeOK {
			return nil, &ConnectionError{Code: code, Message: text}
		}
	}
	if !resp.IsSuccess() {
		return nil, &ConnectionError{Code: CodeHTTP, Message: resp.Status()}
	}

	var auth authAnswer
	if err := sonic.Unmarshal(env.Answer, &auth); err != nil || auth.Token == "" {
		return nil, &ConnectionError{Code: CodeHTTP, Message: "no session token in auth answer", Err: err}
	}

	client.SetAuthToken(auth.Token)

	return &webSession{
		c:           client,
		rateLimiter: d.rateLimiter,
		logger:      d.logger,
	}, nil
}

type webSession struct {
	c           *resty.Client
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

func (s *webSession) get(ctx context.Context, path string, params map[string]string, answer any) error {
	s.rateLimiter.Take()

	var env envelope
	resp, err := s.c.R().
		SetQueryParams(params).
		SetResult(&env).
		SetError(&env).
		SetContext(ctx).
		Get(path)
	if err != nil {
		return &ConnectionError{Code: CodeNetwork, Message: err.Error(), Err: err}
	}

	s.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return &ConnectionError{Code: CodeHTTP, Message: resp.Status()}
	}
	if env.Retcode != "" {
		if err := retcodeErr(env.Retcode); err != nil {
			return fmt.Errorf("%w: %s", err, path)
		}
	}
	if resp.IsError() || !resp.IsSuccess() {
		return fmt.Errorf("%s: unexpected gateway response %s", resp.Status(), path)
	}

	if answer == nil || len(env.Answer) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Answer, answer); err != nil {
		return fmt.Errorf("%w: can't decode %s answer", err, path)
	}
	return nil
}

func loginParam(login uint64) map[string]string {
	return map[string]string{"login": strconv.FormatUint(login, 10)}
}

func (s *webSession) Groups(ctx context.Context) ([]string, error) {
	var total groupTotal
	if err := s.get(ctx, _groupTotalURL, nil, &total); err != nil {
		return nil, fmt.Errorf("%w: can't get group total", err)
	}

	groups := make([]string, 0, total.Total)
	for i := range total.Total {
		var next groupNext
		if err := s.get(ctx, _groupNextURL, map[string]string{"index": strconv.Itoa(i)}, &next); err != nil {
			return nil, fmt.Errorf("%w: can't get group %d", err, i)
		}
		if next.Group != "" {
			groups = append(groups, next.Group)
		}
	}
	return groups, nil
}

func (s *webSession) UsersByGroup(ctx context.Context, group string) ([]model.Account, error) {
	var users []webUser
	if err := s.get(ctx, _userBatchURL, map[string]string{"group": group}, &users); err != nil {
		return nil, fmt.Errorf("%w: can't get users of group %s", err, group)
	}

	accounts := make([]model.Account, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, mapUser(u))
	}
	return accounts, nil
}

func (s *webSession) User(ctx context.Context, login uint64) (model.Account, error) {
	var u webUser
	if err := s.get(ctx, _userURL, loginParam(login), &u); err != nil {
		return model.Account{}, fmt.Errorf("%w: can't get user %d", err, login)
	}
	return mapUser(u), nil
}

func (s *webSession) UserAccount(ctx context.Context, login uint64) (model.Account, error) {
	var a webAccount
	if err := s.get(ctx, _userAccountURL, loginParam(login), &a); err != nil {
		return model.Account{}, fmt.Errorf("%w: can't get account %d", err, login)
	}
	return mapAccount(a), nil
}

func (s *webSession) Positions(ctx context.Context, login uint64) ([]model.PositionRecord, error) {
	var positions []webPosition
	if err := s.get(ctx, _positionsURL, loginParam(login), &positions); err != nil {
		return nil, fmt.Errorf("%w: can't get positions of %d", err, login)
	}

	records := make([]model.PositionRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, mapPosition(p))
	}
	return records, nil
}

func (s *webSession) Deals(ctx context.Context, login uint64, from, to time.Time) ([]model.DealRecord, error) {
	params := loginParam(login)
	params["from"] = strconv.FormatInt(from.Unix(), 10)
	params["to"] = strconv.FormatInt(to.Unix(), 10)

	var deals []webDeal
	if err := s.get(ctx, _dealsURL, params, &deals); err != nil {
		return nil, fmt.Errorf("%w: can't get deals of %d", err, login)
	}

	records := make([]model.DealRecord, 0, len(deals))
	for _, d := range deals {
		records = append(records, mapDeal(d))
	}
	return records, nil
}
