// Package printing renders purchase order documents.
//
// The order is bound to an html/template, with amounts and quantities
// formatted for the configured locale, and the resulting HTML is printed to
// PDF by headless Chrome through the Chrome DevTools Protocol:
//
//	pdf, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    return err
//	}
//	defer pdf.Close()
//
//	renderer, err := printing.NewOrderRenderer(pdf, printing.WithCompanyName("Acme"))
//	doc, err := renderer.Render(ctx, order)
//
// Without a PDF renderer the order is rendered as a standalone HTML document.
package printing
