package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront-admin/internal/model"
	"storefront-admin/internal/repository"
	"storefront-admin/pkg/slug"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MaxVariantCombinations caps the cartesian product of product attributes
const MaxVariantCombinations = 100

const maxSlugAttempts = 50

// --- DTOs ---

// AttributeInput is one axis of variation, e.g. {"name":"Size","values":["S","M"]}
type AttributeInput struct {
	Name   string   `json:"name" binding:"required"`
	Values []string `json:"values" binding:"required,min=1"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	CategoryID  string           `json:"category_id"`
	BasePrice   string           `json:"base_price" binding:"required"`
	Attributes  []AttributeInput `json:"attributes"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"` // "" clears
	BasePrice   *string `json:"base_price"`
	IsActive    *bool   `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type VariantResponse struct {
	ID       string            `json:"id"`
	SKU      string            `json:"sku"`
	Name     string            `json:"name"`
	Options  map[string]string `json:"options"`
	Price    string            `json:"price"`
	IsActive bool              `json:"is_active"`
}

type ProductResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	CategoryID   *string           `json:"category_id"`
	CategoryName string            `json:"category_name,omitempty"`
	BasePrice    string            `json:"base_price"`
	IsActive     bool              `json:"is_active"`
	Variants     []VariantResponse `json:"variants"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, userID string) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, userID string) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string, userID string) error
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	GetProducts(ctx context.Context, search, categoryID string, page, limit int) ([]ProductResponse, int64, error)

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (CategoryResponse, error)
	GetCategories(ctx context.Context) ([]CategoryResponse, error)
}

// --- Implementation ---

type productService struct {
	productRepo repository.ProductRepository
	txManager   repository.TransactionManager
	audit       AuditService
}

func NewProductService(productRepo repository.ProductRepository, txManager repository.TransactionManager, audit AuditService) ProductService {
	return &productService{productRepo: productRepo, txManager: txManager, audit: audit}
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest, userID string) (ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	base := slug.Make(name)
	if base == "" {
		return ProductResponse{}, invalidf("name must contain letters or digits")
	}
	price, err := decimal.NewFromString(req.BasePrice)
	if err != nil || price.IsNegative() {
		return ProductResponse{}, invalidf("base_price must be a non-negative decimal")
	}
	categoryID, err := s.parseCategory(ctx, req.CategoryID)
	if err != nil {
		return ProductResponse{}, err
	}
	combos, err := Combinations(req.Attributes)
	if err != nil {
		return ProductResponse{}, err
	}

	var product model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		productSlug, err := slug.Unique(base, maxSlugAttempts, func(c string) (bool, error) {
			return s.productRepo.SlugExists(txCtx, c, nil)
		})
		if err != nil {
			return fmt.Errorf("failed to allocate slug: %w", err)
		}

		variants, err := buildVariants(name, productSlug, price, combos)
		if err != nil {
			return err
		}
		skus := lo.Map(variants, func(v model.ProductVariant, _ int) string { return v.SKU })
		taken, err := s.productRepo.SKUExists(txCtx, skus)
		if err != nil {
			return fmt.Errorf("failed to check SKUs: %w", err)
		}
		if len(taken) > 0 {
			return fmt.Errorf("%w: SKU already in use: %s", ErrConflict, strings.Join(taken, ", "))
		}

		product = model.Product{
			Name:        name,
			Slug:        productSlug,
			Description: req.Description,
			CategoryID:  categoryID,
			BasePrice:   price,
			IsActive:    true,
			Variants:    variants,
		}
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.audit.Record(ctx, userID, model.ActionCreateProduct, product.ID.String(), product.Name, map[string]interface{}{
		"slug":     product.Slug,
		"variants": len(product.Variants),
	})
	return s.GetProduct(ctx, product.ID.String())
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, userID string) (ProductResponse, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return ProductResponse{}, invalidf("name cannot be empty")
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		wanted := slug.Make(*req.Slug)
		if wanted == "" {
			return ProductResponse{}, invalidf("slug must contain letters or digits")
		}
		taken, err := s.productRepo.SlugExists(ctx, wanted, &product.ID)
		if err != nil {
			return ProductResponse{}, fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return ProductResponse{}, fmt.Errorf("%w: slug %q already in use", ErrConflict, wanted)
		}
		product.Slug = wanted
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		if product.CategoryID, err = s.parseCategory(ctx, *req.CategoryID); err != nil {
			return ProductResponse{}, err
		}
	}
	if req.BasePrice != nil {
		price, err := decimal.NewFromString(*req.BasePrice)
		if err != nil || price.IsNegative() {
			return ProductResponse{}, invalidf("base_price must be a non-negative decimal")
		}
		product.BasePrice = price
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	product.Category = nil
	if err := s.productRepo.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	return s.GetProduct(ctx, product.ID.String())
}

func (s *productService) DeleteProduct(ctx context.Context, id string, userID string) error {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.audit.Record(ctx, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, nil)
	return nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(*product), nil
}

func (s *productService) GetProducts(ctx context.Context, search, categoryID string, page, limit int) ([]ProductResponse, int64, error) {
	filter := repository.ProductFilter{Search: search}
	if categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, 0, invalidf("invalid category_id")
		}
		filter.CategoryID = &id
	}

	products, total, err := s.productRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *productService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	base := slug.Make(name)
	if base == "" {
		return CategoryResponse{}, invalidf("name must contain letters or digits")
	}
	categorySlug, err := slug.Unique(base, maxSlugAttempts, func(c string) (bool, error) {
		return s.productRepo.CategorySlugExists(ctx, c)
	})
	if err != nil {
		return CategoryResponse{}, fmt.Errorf("failed to allocate slug: %w", err)
	}

	category := model.Category{Name: name, Slug: categorySlug, Description: req.Description}
	if err := s.productRepo.CreateCategory(ctx, &category); err != nil {
		return CategoryResponse{}, fmt.Errorf("failed to create category: %w", err)
	}
	return toCategoryResponse(category), nil
}

func (s *productService) GetCategories(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return lo.Map(categories, func(c model.Category, _ int) CategoryResponse { return toCategoryResponse(c) }), nil
}

func (s *productService) findProduct(ctx context.Context, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidf("invalid product id")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return product, nil
}

func (s *productService) parseCategory(ctx context.Context, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidf("invalid category_id")
	}
	if _, err := s.productRepo.FindCategoryByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "category")
	}
	return &id, nil
}

// --- Helpers ---

// Option is one attribute value picked for a variant
type Option struct {
	Name  string
	Value string
}

// Combinations returns the cartesian product of the attribute values in
// input order. No attributes yields a single empty combination.
func Combinations(attrs []AttributeInput) ([][]Option, error) {
	total := 1
	for _, a := range attrs {
		if strings.TrimSpace(a.Name) == "" {
			return nil, invalidf("attribute name is required")
		}
		values := lo.Uniq(lo.Compact(lo.Map(a.Values, func(v string, _ int) string { return strings.TrimSpace(v) })))
		if len(values) == 0 {
			return nil, invalidf("attribute %q needs at least one value", a.Name)
		}
		total *= len(values)
		if total > MaxVariantCombinations {
			return nil, invalidf("attributes produce more than %d variants", MaxVariantCombinations)
		}
	}

	combos := [][]Option{{}}
	for _, a := range attrs {
		name := strings.TrimSpace(a.Name)
		values := lo.Uniq(lo.Compact(lo.Map(a.Values, func(v string, _ int) string { return strings.TrimSpace(v) })))
		combos = lo.FlatMap(combos, func(prefix []Option, _ int) [][]Option {
			return lo.Map(values, func(v string, _ int) []Option {
				next := make([]Option, len(prefix), len(prefix)+1)
				copy(next, prefix)
				return append(next, Option{Name: name, Value: v})
			})
		})
	}
	return combos, nil
}

// VariantSKU is <product-slug>-<value>-<value>...
func VariantSKU(productSlug string, combo []Option) string {
	parts := append([]string{productSlug}, lo.Map(combo, func(o Option, _ int) string { return slug.Make(o.Value) })...)
	return strings.Join(lo.Compact(parts), "-")
}

func buildVariants(productName, productSlug string, price decimal.Decimal, combos [][]Option) ([]model.ProductVariant, error) {
	variants := make([]model.ProductVariant, 0, len(combos))
	seen := make(map[string]bool, len(combos))
	for _, combo := range combos {
		sku := VariantSKU(productSlug, combo)
		if seen[sku] {
			return nil, invalidf("attribute values collide on SKU %s", sku)
		}
		seen[sku] = true

		options := make(map[string]string, len(combo))
		for _, o := range combo {
			options[o.Name] = o.Value
		}
		raw, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode variant options: %w", err)
		}

		name := productName
		if len(combo) > 0 {
			name += " / " + strings.Join(lo.Map(combo, func(o Option, _ int) string { return o.Value }), " / ")
		}
		variants = append(variants, model.ProductVariant{
			SKU:      sku,
			Name:     name,
			Options:  datatypes.JSON(raw),
			Price:    price,
			IsActive: true,
		})
	}
	return variants, nil
}

func toCategoryResponse(c model.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID.String(), Name: c.Name, Slug: c.Slug, Description: c.Description}
}

func toProductResponse(p model.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CategoryID:  uuidString(p.CategoryID),
		BasePrice:   p.BasePrice.StringFixed(2),
		IsActive:    p.IsActive,
		Variants:    make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Category != nil {
		res.CategoryName = p.Category.Name
	}
	for _, v := range p.Variants {
		options := map[string]string{}
		if len(v.Options) > 0 {
			_ = json.Unmarshal(v.Options, &options)
		}
		res.Variants = append(res.Variants, VariantResponse{
			ID:       v.ID.String(),
			SKU:      v.SKU,
			Name:     v.Name,
			Options:  options,
			Price:    v.Price.StringFixed(2),
			IsActive: v.IsActive,
		})
	}
	return res
}
