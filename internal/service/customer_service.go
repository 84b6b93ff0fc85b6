package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront-admin/internal/model"
	"storefront-admin/internal/repository"

	"github.com/google/uuid"
)

// --- Address DTO ---

type AddressPayload struct {
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	CountryCode string `json:"country_code"`
	RegionCode  string `json:"region_code"`
	IsDefault   bool   `json:"is_default"`
}

type AddressResponse struct {
	ID          string `json:"id"`
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	CountryCode string `json:"country_code"`
	RegionCode  string `json:"region_code"`
	IsDefault   bool   `json:"is_default"`
}

// --- Customer DTOs ---

type CreateCustomerRequest struct {
	Name        string           `json:"name" binding:"required"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	IsB2B       bool             `json:"is_b2b"`
	CompanyName string           `json:"company_name"`
	TaxCode     string           `json:"tax_code"`
	CountryCode string           `json:"country_code"`
	RegionCode  string           `json:"region_code"`
	Addresses   []AddressPayload `json:"addresses"`
}

type UpdateCustomerRequest struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	Phone       *string           `json:"phone"`
	IsB2B       *bool             `json:"is_b2b"`
	CompanyName *string           `json:"company_name"`
	TaxCode     *string           `json:"tax_code"`
	CountryCode *string           `json:"country_code"`
	RegionCode  *string           `json:"region_code"`
	IsActive    *bool             `json:"is_active"`
	Addresses   *[]AddressPayload `json:"addresses"` // nil = untouched, [] = clear all
}

type CustomerResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	IsB2B       bool              `json:"is_b2b"`
	CompanyName string            `json:"company_name"`
	TaxCode     string            `json:"tax_code"`
	CountryCode string            `json:"country_code"`
	RegionCode  string            `json:"region_code"`
	IsActive    bool              `json:"is_active"`
	Addresses   []AddressResponse `json:"addresses"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string, userID string) error
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	GetCustomers(ctx context.Context, filter repository.CustomerFilter, page, limit int) ([]CustomerResponse, int64, error)
}

// --- Implementation ---

type customerService struct {
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
	audit        AuditService
}

func NewCustomerService(customerRepo repository.CustomerRepository, txManager repository.TransactionManager, audit AuditService) CustomerService {
	return &customerService{customerRepo: customerRepo, txManager: txManager, audit: audit}
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return CustomerResponse{}, invalidf("name is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return CustomerResponse{}, err
	}
	if req.IsB2B && strings.TrimSpace(req.TaxCode) == "" {
		return CustomerResponse{}, invalidf("tax_code is required for B2B customers")
	}
	if err := validateAddresses(req.Addresses); err != nil {
		return CustomerResponse{}, err
	}

	customer := &model.Customer{
		Name:        strings.TrimSpace(req.Name),
		Email:       req.Email,
		Phone:       req.Phone,
		IsB2B:       req.IsB2B,
		CompanyName: req.CompanyName,
		TaxCode:     req.TaxCode,
		CountryCode: strings.ToUpper(req.CountryCode),
		RegionCode:  strings.ToUpper(req.RegionCode),
		IsActive:    true,
		Addresses:   toAddressModels(req.Addresses), // CustomerID filled on cascade create
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to create customer: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil)
	return toCustomerResponse(*customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return CustomerResponse{}, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return CustomerResponse{}, invalidf("name cannot be empty")
		}
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return CustomerResponse{}, err
		}
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.IsB2B != nil {
		customer.IsB2B = *req.IsB2B
	}
	if req.CompanyName != nil {
		customer.CompanyName = *req.CompanyName
	}
	if req.TaxCode != nil {
		customer.TaxCode = *req.TaxCode
	}
	if req.CountryCode != nil {
		customer.CountryCode = strings.ToUpper(*req.CountryCode)
	}
	if req.RegionCode != nil {
		customer.RegionCode = strings.ToUpper(*req.RegionCode)
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	if customer.IsB2B && strings.TrimSpace(customer.TaxCode) == "" {
		return CustomerResponse{}, invalidf("tax_code is required for B2B customers")
	}
	if req.Addresses != nil {
		if err := validateAddresses(*req.Addresses); err != nil {
			return CustomerResponse{}, err
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		if req.Addresses != nil {
			addresses := toAddressModels(*req.Addresses)
			if err := s.customerRepo.ReplaceAddresses(txCtx, customer.ID, addresses); err != nil {
				return fmt.Errorf("failed to replace addresses: %w", err)
			}
			customer.Addresses = addresses
		}
		return nil
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	s.audit.Record(ctx, userID, model.ActionUpdateCustomer, customer.ID.String(), customer.Name, nil)
	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string, userID string) error {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return err
	}
	if err := s.customerRepo.Delete(ctx, customer.ID); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	s.audit.Record(ctx, userID, model.ActionDeleteCustomer, customer.ID.String(), customer.Name, nil)
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return CustomerResponse{}, err
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) GetCustomers(ctx context.Context, filter repository.CustomerFilter, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	res := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		res = append(res, toCustomerResponse(c))
	}
	return res, total, nil
}

func (s *customerService) findCustomer(ctx context.Context, id string) (*model.Customer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidf("invalid customer id")
	}
	customer, err := s.customerRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, notFoundOr(err, "customer")
	}
	return customer, nil
}

// --- Validation helpers ---

var validAddressTypes = map[string]bool{
	model.AddressTypeBilling:  true,
	model.AddressTypeShipping: true,
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalidf("invalid email format")
	}
	return nil
}

func validateAddresses(addresses []AddressPayload) error {
	for i, addr := range addresses {
		if !validAddressTypes[addr.AddressType] {
			return invalidf("addresses[%d]: address_type must be one of: BILLING, SHIPPING", i)
		}
		if strings.TrimSpace(addr.FullAddress) == "" {
			return invalidf("addresses[%d]: full_address is required", i)
		}
	}
	return nil
}

func toAddressModels(payloads []AddressPayload) []model.CustomerAddress {
	addresses := make([]model.CustomerAddress, 0, len(payloads))
	for _, p := range payloads {
		addresses = append(addresses, model.CustomerAddress{
			AddressType: p.AddressType,
			FullAddress: p.FullAddress,
			CountryCode: strings.ToUpper(p.CountryCode),
			RegionCode:  strings.ToUpper(p.RegionCode),
			IsDefault:   p.IsDefault,
		})
	}
	return addresses
}

// --- Response mappers ---

func toCustomerResponse(c model.Customer) CustomerResponse {
	addresses := make([]AddressResponse, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, AddressResponse{
			ID:          a.ID.String(),
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			CountryCode: a.CountryCode,
			RegionCode:  a.RegionCode,
			IsDefault:   a.IsDefault,
		})
	}

	return CustomerResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		IsB2B:       c.IsB2B,
		CompanyName: c.CompanyName,
		TaxCode:     c.TaxCode,
		CountryCode: c.CountryCode,
		RegionCode:  c.RegionCode,
		IsActive:    c.IsActive,
		Addresses:   addresses,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
}
