package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shoptools/shoppush/internal/category"
	"github.com/shoptools/shoppush/internal/config"
)

const (
	pathAccessToken   = "/cgi-bin/token"
	pathAllCategories = "/channels/ec/category/all"
	pathCreateProduct = "/channels/ec/product/create"
)

// Client talks to the WeChat Channels Shop API.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	tokens     *tokenSource
}

// NewClient creates a shop API client from validated configuration.
func NewClient(cfg config.ShopConfig) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	c.tokens = newTokenSource(c.fetchAccessToken)
	return c
}

// ProductRequest is the create-product request body. Field names follow
// the platform wire format.
type ProductRequest struct {
	Title         string   `json:"title"`
	SubTitle      string   `json:"sub_title,omitempty"`
	HeadImgs      []string `json:"head_imgs"`
	DeliverMethod int      `json:"deliver_method"`
	Cats          []Cat    `json:"cats"`
	CatsV2        []CatV2  `json:"cats_v2"`
	DescInfo      DescInfo `json:"desc_info"`
	SKUs          []SKU    `json:"skus"`
	OutProductID  string   `json:"out_product_id,omitempty"`
	Listing       int      `json:"listing"`
}

type Cat struct {
	CatID string `json:"cat_id"`
}

type CatV2 struct {
	CatID string `json:"cat_id"`
	Level int    `json:"level"`
}

type DescInfo struct {
	Imgs []string `json:"imgs"`
	Desc string   `json:"desc"`
}

// SKU prices are in the minor currency unit (fen).
type SKU struct {
	Price    int64  `json:"price"`
	StockNum int    `json:"stock_num"`
	OutSKUID string `json:"out_sku_id,omitempty"`
}

// AddProductResult is the successful create-product response.
type AddProductResult struct {
	ProductID string `json:"product_id"`
}

// AddProduct creates one product listing. A non-zero errcode comes back
// as *APIError so the caller can classify it.
func (c *Client) AddProduct(ctx context.Context, req *ProductRequest) (*AddProductResult, error) {
	var resp struct {
		Errcode   int    `json:"errcode"`
		Errmsg    string `json:"errmsg"`
		ProductID string `json:"product_id"`
	}

	if err := c.post(ctx, pathCreateProduct, req, &resp); err != nil {
		return nil, err
	}
	if resp.Errcode != 0 {
		return nil, &APIError{Code: resp.Errcode, Message: resp.Errmsg}
	}

	return &AddProductResult{ProductID: resp.ProductID}, nil
}

// catNode decodes one taxonomy node; the endpoint may return the tree
// flat (parent ids only) or nested (children populated).
type catNode struct {
	CatID    json.Number `json:"cat_id"`
	FatherID json.Number `json:"f_cat_id"`
	Level    int         `json:"level"`
	Name     string      `json:"name"`
	Children []catNode   `json:"children,omitempty"`
}

// FetchCategories retrieves the full shop taxonomy as a flat entry list.
func (c *Client) FetchCategories(ctx context.Context) ([]category.Entry, error) {
	var resp struct {
		Errcode int       `json:"errcode"`
		Errmsg  string    `json:"errmsg"`
		Cats    []catNode `json:"cats"`
	}

	if err := c.post(ctx, pathAllCategories, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Errcode != 0 {
		return nil, &APIError{Code: resp.Errcode, Message: resp.Errmsg}
	}

	var entries []category.Entry
	var flatten func(nodes []catNode)
	flatten = func(nodes []catNode) {
		for _, n := range nodes {
			entries = append(entries, category.Entry{
				ID:       n.CatID.String(),
				ParentID: parentID(n.FatherID),
				Level:    n.Level,
				Label:    n.Name,
			})
			flatten(n.Children)
		}
	}
	flatten(resp.Cats)

	slog.Info("Fetched shop taxonomy", "entries", len(entries))
	return entries, nil
}

// RefreshCredentials forces a token refresh on the next request. The
// uploader calls this after an auth rejection.
func (c *Client) RefreshCredentials(ctx context.Context) error {
	c.tokens.Invalidate()
	_, err := c.tokens.Token(ctx)
	return err
}

// parentID normalizes the root marker: level-1 categories report parent 0.
func parentID(id json.Number) string {
	s := id.String()
	if s == "0" || s == "" {
		return ""
	}
	return s
}

// fetchAccessToken exchanges the app credentials for an access token.
func (c *Client) fetchAccessToken(ctx context.Context) (string, time.Duration, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)

	reqURL := c.baseURL + pathAccessToken + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, &APIError{HTTPStatus: resp.StatusCode, Message: string(body)}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Errcode     int    `json:"errcode"`
		Errmsg      string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", 0, &APIError{Code: result.Errcode, Message: result.Errmsg}
	}

	return result.AccessToken, time.Duration(result.ExpiresIn) * time.Second, nil
}

// post sends an authenticated JSON request and decodes the response body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	reqURL := c.baseURL + path + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{HTTPStatus: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
