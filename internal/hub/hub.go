// SPDX-License-Identifier: Apache-2.0

// Package hub talks to the Docker Hub metadata API: authentication and
// repository description updates.
package hub

import (
	"context"
	"fmt"
	"os"

	"resty.dev/v3"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvAPI      = "DOCKER_HUB_API"
	EnvUsername = "DOCKER_HUB_USERNAME"
	EnvPassword = "DOCKER_HUB_PASSWORD"
	EnvToken    = "DOCKER_HUB_TOKEN"
)

const defaultAPI = "https://hub.docker.com"

const (
	endpointLogin        = "/v2/users/login/"
	endpointRepositories = "/v2/repositories/"
)

// Client is an authenticated Docker Hub API client.
type Client struct {
	http  *resty.Client
	token string
}

// New creates a client against the given API base URL; an empty base means
// the public Docker Hub.
func New(base string) *Client {
	if base == "" {
		base = defaultAPI
	}

	return &Client{
		http: resty.New().SetBaseURL(base),
	}
}

// NewFromEnv builds a client from the DOCKER_HUB_* environment: a static
// token when present, otherwise a username/password login. It returns nil
// (and no error) when no credentials are configured at all.
func NewFromEnv(ctx context.Context) (*Client, error) {
	c := New(os.Getenv(EnvAPI))

	if token := os.Getenv(EnvToken); token != "" {
		c.token = token
		return c, nil
	}

	username := os.Getenv(EnvUsername)
	password := os.Getenv(EnvPassword)
	if username == "" || password == "" {
		return nil, nil
	}

	if err := c.Login(ctx, username, password); err != nil {
		return nil, err
	}

	return c, nil
}

// Login exchanges credentials for a JWT used on later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var body struct {
		Token string `json:"token"`
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&body).
		Post(endpointLogin)
	if err != nil {
		return fmt.Errorf("error logging in to docker hub: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("docker hub login failed: %s", res.Status())
	}

	c.token = body.Token
	return nil
}

// UpdateReadme replaces the full description of a repository.
func (c *Client) UpdateReadme(ctx context.Context, repository, readme string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "JWT "+c.token).
		SetBody(map[string]string{"full_description": readme}).
		Patch(endpointRepositories + repository + "/")
	if err != nil {
		return fmt.Errorf("error updating readme for %s: %w", repository, err)
	}
	if res.IsError() {
		return fmt.Errorf("readme update for %s rejected: %s: %s", repository, res.Status(), res.String())
	}

	return nil
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}
