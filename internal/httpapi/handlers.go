package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"dealscope.dev/dealscope/internal/db"
	"dealscope.dev/dealscope/internal/dedup"
	"dealscope.dev/dealscope/internal/dispatch"
	"dealscope.dev/dealscope/internal/globaltime"
)

const maxBatchURLs = 10

// maxIngestBodyBytes bounds POST /ingest payloads.
const maxIngestBodyBytes = 64 * 1024

type paginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "dealscope",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return failValidation(c, map[string]string{"q": "query is required"})
	}

	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 10000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	perPage, err := parsePositiveInt(c.QueryParam("per_page"), s.opts.DefaultPageSize, 1, s.opts.MaxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"per_page": err.Error()})
	}
	sortBy, order, fieldErr := parseSortParams(c.QueryParam("sort"), c.QueryParam("order"))
	if fieldErr != nil {
		return failValidation(c, fieldErr)
	}

	result, err := s.svc.Search(c.Request().Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("search failed")
		return internalError(c, "Search failed")
	}

	products := make([]dedup.AggregatedProduct, len(result.Products))
	copy(products, result.Products)
	sortProducts(products, sortBy, order)

	total := len(products)
	pageItems, meta := paginate(products, page, perPage)

	return success(c, map[string]any{
		"query":          result.Query,
		"products":       pageItems,
		"pagination":     meta,
		"sources":        result.Sources,
		"total_listings": result.TotalListings,
		"total_products": total,
		"from_cache":     result.FromCache,
		"from_catalog":   result.FromCatalog,
		"searched_at":    result.SearchedAt,
	})
}

func (s *Server) handleCompare(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("ids"))
	if err != nil {
		return failValidation(c, map[string]string{"ids": err.Error()})
	}

	report, err := s.svc.Compare(c.Request().Context(), ids)
	if err != nil {
		if isClientError(err) {
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		}
		s.logger.Error().Err(err).Msg("compare failed")
		return internalError(c, "Comparison failed")
	}
	return success(c, report)
}

func (s *Server) handleProductByURL(c echo.Context) error {
	url := strings.TrimSpace(c.QueryParam("url"))
	if url == "" {
		return failValidation(c, map[string]string{"url": "url is required"})
	}

	detail, err := s.svc.GetProductByURL(c.Request().Context(), url)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnsupportedSource) {
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		}
		s.logger.Error().Err(err).Str("url", url).Msg("product lookup by url failed")
		return internalError(c, "Product lookup failed")
	}
	return success(c, detail)
}

func (s *Server) handleProductList(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 100000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	perPage, err := parsePositiveInt(c.QueryParam("per_page"), s.opts.DefaultPageSize, 1, s.opts.MaxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"per_page": err.Error()})
	}

	products, err := s.svc.ListCatalog(c.Request().Context(), perPage, (page-1)*perPage)
	if err != nil {
		s.logger.Error().Err(err).Msg("catalog list failed")
		return internalError(c, "Failed to load products")
	}

	return success(c, map[string]any{
		"products": products,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleProductDetail(c echo.Context) error {
	productID, err := parseProductID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	detail, err := s.svc.GetProductByID(c.Request().Context(), productID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("product detail failed")
		return internalError(c, "Failed to load product")
	}
	return success(c, detail)
}

func (s *Server) handlePriceHistory(c echo.Context) error {
	productID, err := parseProductID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), 100, 1, 1000)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	samples, err := s.svc.PriceHistory(c.Request().Context(), productID, limit)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("price history failed")
		return internalError(c, "Failed to load price history")
	}

	return success(c, map[string]any{
		"product_id": productID,
		"prices":     priceHistoryItems(samples),
	})
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScrape(c echo.Context) error {
	var req scrapeRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "invalid JSON body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return failValidation(c, map[string]string{"url": "url is required"})
	}

	product, err := s.svc.ScrapeURL(c.Request().Context(), req.URL)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnsupportedSource) {
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		}
		s.logger.Error().Err(err).Str("url", req.URL).Msg("scrape failed")
		return fail(c, http.StatusBadGateway, "Scrape failed", map[string]any{
			"url": req.URL,
		})
	}
	return successWithStatus(c, http.StatusCreated, map[string]any{
		"product": product,
	})
}

type scrapeBatchRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleScrapeBatch(c echo.Context) error {
	var req scrapeBatchRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "invalid JSON body"})
	}

	urls := make([]string, 0, len(req.URLs))
	for _, url := range req.URLs {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return failValidation(c, map[string]string{"urls": "at least one url is required"})
	}
	if len(urls) > maxBatchURLs {
		return failValidation(c, map[string]string{
			"urls": fmt.Sprintf("at most %d urls per batch", maxBatchURLs),
		})
	}

	outcomes := s.svc.ScrapeBatch(c.Request().Context(), urls)

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}

	return success(c, map[string]any{
		"results":   outcomes,
		"requested": len(urls),
		"succeeded": succeeded,
		"failed":    len(urls) - succeeded,
	})
}

func (s *Server) handleIngest(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxIngestBodyBytes+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "failed to read request body"})
	}
	if len(payload) == 0 {
		return failValidation(c, map[string]string{"body": "request body is required"})
	}
	if len(payload) > maxIngestBodyBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Listing payload too large", nil)
	}

	product, err := s.svc.IngestListing(c.Request().Context(), payload)
	if err != nil {
		if isClientError(err) {
			return fail(c, http.StatusUnprocessableEntity, err.Error(), nil)
		}
		s.logger.Error().Err(err).Msg("ingest failed")
		return internalError(c, "Ingest failed")
	}
	return successWithStatus(c, http.StatusCreated, map[string]any{
		"product": product,
	})
}

func (s *Server) handleSupportedSites(c echo.Context) error {
	sites := s.svc.SupportedSites()
	return success(c, map[string]any{
		"sites": sites,
		"count": len(sites),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.svc.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

type priceHistoryItem struct {
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Source     string  `json:"source"`
	RecordedAt string  `json:"recorded_at"`
}

func priceHistoryItems(samples []db.PriceSample) []priceHistoryItem {
	items := make([]priceHistoryItem, 0, len(samples))
	for _, sample := range samples {
		items = append(items, priceHistoryItem{
			Price:      sample.Price,
			Currency:   sample.Currency,
			Source:     sample.Source,
			RecordedAt: sample.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return items
}

func parsePositiveInt(raw string, def, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseProductID(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return value, nil
}

func parseIDList(raw string) ([]int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("ids is required")
	}

	parts := strings.Split(trimmed, ",")
	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, part := range parts {
		id, err := parseProductID(part)
		if err != nil {
			return nil, fmt.Errorf("id %q must be a positive integer", strings.TrimSpace(part))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseSortParams(sortRaw, orderRaw string) (string, string, map[string]string) {
	sortBy := strings.ToLower(strings.TrimSpace(sortRaw))
	if sortBy == "" {
		sortBy = "price"
	}
	switch sortBy {
	case "price", "rating", "title":
	default:
		return "", "", map[string]string{"sort": "must be one of: price, rating, title"}
	}

	order := strings.ToLower(strings.TrimSpace(orderRaw))
	if order == "" {
		if sortBy == "rating" {
			order = "desc"
		} else {
			order = "asc"
		}
	}
	if order != "asc" && order != "desc" {
		return "", "", map[string]string{"order": "must be asc or desc"}
	}
	return sortBy, order, nil
}

// sortProducts orders aggregated products for presentation. Products without
// a usable sort key (no price, no rating) sink to the end in either order.
func sortProducts(products []dedup.AggregatedProduct, sortBy, order string) {
	less := func(a, b dedup.AggregatedProduct) bool {
		switch sortBy {
		case "rating":
			ar, br := ratingKey(a), ratingKey(b)
			if (ar < 0) != (br < 0) {
				return br < 0
			}
			if order == "desc" {
				return ar > br
			}
			return ar < br
		case "title":
			if order == "desc" {
				return a.Title > b.Title
			}
			return a.Title < b.Title
		default:
			if (a.BestPrice <= 0) != (b.BestPrice <= 0) {
				return b.BestPrice <= 0
			}
			if order == "desc" {
				return a.BestPrice > b.BestPrice
			}
			return a.BestPrice < b.BestPrice
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return less(products[i], products[j])
	})
}

func ratingKey(p dedup.AggregatedProduct) float64 {
	if p.Rating == nil {
		return -1
	}
	return *p.Rating
}

func paginate(products []dedup.AggregatedProduct, page, perPage int) ([]dedup.AggregatedProduct, paginationMeta) {
	total := len(products)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return products[start:end], paginationMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// isClientError distinguishes bad input from infrastructure failures for
// status code selection.
func isClientError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "at least") ||
		strings.Contains(msg, "at most") ||
		strings.Contains(msg, "must")
}
