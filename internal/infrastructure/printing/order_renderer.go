package printing

import (
	"context"
	"time"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// OrderRenderer renders purchase orders to PDF, or to HTML when no PDF
// renderer is available
type OrderRenderer struct {
	engine      *templateEngine
	pdf         PDFRenderer
	companyName string
	paperSize   PaperSize
	margins     Margins
	timeout     time.Duration
	logger      *zap.Logger
}

// OrderRendererOption configures an OrderRenderer
type OrderRendererOption func(*orderRendererOptions)

type orderRendererOptions struct {
	companyName string
	locale      string
	paperSize   PaperSize
	timeout     time.Duration
	logger      *zap.Logger
}

// WithCompanyName prints the buyer's name in the document header
func WithCompanyName(name string) OrderRendererOption {
	return func(o *orderRendererOptions) { o.companyName = name }
}

// WithLocale sets the BCP 47 locale used to format numbers (default "en")
func WithLocale(locale string) OrderRendererOption {
	return func(o *orderRendererOptions) { o.locale = locale }
}

// WithPaperSize overrides the default A4
func WithPaperSize(size PaperSize) OrderRendererOption {
	return func(o *orderRendererOptions) { o.paperSize = size }
}

// WithTimeout bounds a single PDF render
func WithTimeout(d time.Duration) OrderRendererOption {
	return func(o *orderRendererOptions) { o.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) OrderRendererOption {
	return func(o *orderRendererOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrderRenderer creates a renderer. pdf may be nil.
func NewOrderRenderer(pdf PDFRenderer, opts ...OrderRendererOption) (*OrderRenderer, error) {
	o := orderRendererOptions{locale: "en", paperSize: PaperSizeA4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	tag, err := language.Parse(o.locale)
	if err != nil {
		o.logger.Warn("unknown printing locale, using English", zap.String("locale", o.locale), zap.Error(err))
		tag = language.English
	}
	engine, err := newTemplateEngine(tag)
	if err != nil {
		return nil, err
	}

	return &OrderRenderer{
		engine:      engine,
		pdf:         pdf,
		companyName: o.companyName,
		paperSize:   o.paperSize,
		margins:     DefaultMargins(),
		timeout:     o.timeout,
		logger:      o.logger,
	}, nil
}

// NewOrderRendererFromConfig builds the renderer described by cfg. With
// printing disabled the renderer produces HTML only. The returned
// PDFRenderer, if any, must be closed on shutdown.
func NewOrderRendererFromConfig(cfg config.PrintingConfig, logger *zap.Logger) (*OrderRenderer, PDFRenderer, error) {
	opts := []OrderRendererOption{
		WithCompanyName(cfg.CompanyName),
		WithLocale(cfg.Locale),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	}
	if !cfg.Enabled {
		r, err := NewOrderRenderer(nil, opts...)
		return r, nil, err
	}

	pdf, err := NewChromedpRenderer(&ChromedpConfig{
		Timeout:   cfg.Timeout,
		ExecPath:  cfg.ExecPath,
		RemoteURL: cfg.RemoteURL,
		NoSandbox: true,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	r, err := NewOrderRenderer(pdf, opts...)
	if err != nil {
		_ = pdf.Close()
		return nil, nil, err
	}
	return r, pdf, nil
}

// Render produces the printable document for order
func (r *OrderRenderer) Render(ctx context.Context, order *procurement.PurchaseOrder) (*appprocurement.RenderedDocument, error) {
	html, err := r.engine.render(order, r.companyName)
	if err != nil {
		return nil, err
	}

	if r.pdf == nil {
		return &appprocurement.RenderedDocument{
			FileName:    order.OrderNumber + ".html",
			ContentType: "text/html; charset=utf-8",
			HTML:        html,
			Content:     []byte(html),
		}, nil
	}

	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:      html,
		PaperSize: r.paperSize,
		Margins:   r.margins,
		Title:     "Purchase Order " + order.OrderNumber,
		Timeout:   r.timeout,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("purchase order rendered",
		zap.String("order_number", order.OrderNumber),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration),
	)
	return &appprocurement.RenderedDocument{
		FileName:    order.OrderNumber + ".pdf",
		ContentType: "application/pdf",
		HTML:        html,
		Content:     result.PDFData,
	}, nil
}

var _ appprocurement.DocumentRenderer = (*OrderRenderer)(nil)
