package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/httpjson"
)

type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", buildinfo.UserAgent()).
		SetHeader("Accept", "application/json")
	return &apiClient{http: c}
}

// do exécute la requête et décode la réponse JSON dans out (si non nil).
// Un statut >= 400 devient une erreur portant le message du serveur.
func (c *apiClient) do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		var body httpjson.ErrorBody
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
			return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode(), body.Error)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode())
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}
