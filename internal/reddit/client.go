package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

// Client talks to the Reddit data API with an app-only OAuth2 token.
type Client struct {
	http      *http.Client
	baseURL   string
	authURL   string
	clientID  string
	secret    string
	userAgent string
	logger    *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a new Reddit API client
func New(cfg *config.RedditConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit client_id and client_secret are required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("reddit user_agent is required")
	}

	logger := logging.GetLogger().With(zap.String("component", "reddit-client"))

	client := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		authURL:   strings.TrimSuffix(cfg.AuthURL, "/"),
		clientID:  cfg.ClientID,
		secret:    cfg.ClientSecret,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}

	logger.Info("Reddit client initialized", zap.String("base_url", client.baseURL))

	return client, nil
}

// Listing fetches one page of a subreddit listing. It returns the posts
// and the cursor for the next page, empty once the listing is exhausted.
func (c *Client) Listing(ctx context.Context, subreddit, sort, timeFilter string, limit int, after string) ([]Post, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.listing")
	defer span.End()

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")
	if timeFilter != "" {
		query.Set("t", timeFilter)
	}
	if after != "" {
		query.Set("after", after)
	}

	body, err := c.get(ctx, fmt.Sprintf("/r/%s/%s.json", subreddit, sort), query)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch r/%s listing: %w", subreddit, err)
	}

	var envelope thing
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	var listing listingData
	if err := json.Unmarshal(envelope.Data, &listing); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal listing data: %w", err)
	}

	posts := make([]Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal post: %w", err)
		}
		posts = append(posts, p.toPost())
	}

	return posts, listing.After, nil
}

// CommentTree fetches the comment tree of one submission and flattens
// it depth-first. Collapsed "more" stubs are skipped, so very large
// threads come back truncated to what Reddit inlines.
func (c *Client) CommentTree(ctx context.Context, subreddit, postID string) ([]Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.comment_tree")
	defer span.End()

	query := url.Values{}
	query.Set("limit", "500")
	query.Set("raw_json", "1")

	body, err := c.get(ctx, fmt.Sprintf("/r/%s/comments/%s.json", subreddit, postID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s: %w", postID, err)
	}

	// The endpoint returns two listings: the submission, then the tree.
	var envelopes []thing
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comment response: %w", err)
	}
	if len(envelopes) < 2 {
		return nil, nil
	}

	var listing listingData
	if err := json.Unmarshal(envelopes[1].Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comment listing: %w", err)
	}

	var comments []Comment
	c.walkComments(&comments, listing.Children, 0)
	return comments, nil
}

func (c *Client) walkComments(out *[]Comment, children []thing, depth int) {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			c.logger.Warn("Skipping undecodable comment", zap.Error(err))
			continue
		}
		*out = append(*out, data.toComment(depth))
		if replies := repliesListing(data.Replies); replies != nil {
			c.walkComments(out, replies.Children, depth+1)
		}
	}
}

// token returns a cached app-only token, requesting a fresh one from
// the auth host when the cache is empty or past its expiry margin.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)

	c.logger.Debug("Fetched Reddit access token",
		zap.Int("expires_in", payload.ExpiresIn))

	return c.accessToken, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked early. Drop it so the next
		// attempt re-authenticates.
		c.mu.Lock()
		c.accessToken = ""
		c.mu.Unlock()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit API returned %d for %s", resp.StatusCode, path)
	}

	return body, nil
}
