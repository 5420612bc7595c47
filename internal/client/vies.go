package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anmicius0/euvat-checker/internal/metrics"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/anmicius0/euvat-checker/internal/vat"
	"go.uber.org/zap"
)

const (
	checkVatEnvelopeHead = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`xmlns:urn="urn:ec.europa.eu:taxud:vies:services:checkVat:types">` +
		`<soapenv:Header/><soapenv:Body><urn:checkVat>`
	checkVatEnvelopeTail = `</urn:checkVat></soapenv:Body></soapenv:Envelope>`

	requestDateLength = 10
)

// viesClient talks to the VIES checkVatService SOAP endpoint.
// It is intentionally unexported so callers use the RegistryClient interface.
type viesClient struct {
	*HTTPClient
	url     string
	metrics *metrics.Metrics
}

// NewViesClient creates a RegistryClient for the VIES endpoint at url.
// m may be nil.
func NewViesClient(url string, timeout time.Duration, m *metrics.Metrics) RegistryClient {
	return &viesClient{
		HTTPClient: NewHTTPClient(timeout),
		url:        url,
		metrics:    m,
	}
}

// Verify sends one checkVat request for identifier.
func (c *viesClient) Verify(ctx context.Context, identifier string) (*vat.VerificationResult, error) {
	countryCode, number := vat.Split(identifier)
	start := time.Now()

	result, err := c.checkVat(ctx, countryCode, number)
	kind := "ok"
	if err != nil {
		kind = string(KindOf(err))
	}
	c.metrics.ObserveRegistryRequest(kind, time.Since(start))

	if err != nil {
		utils.WithComponent("vies_client").Debug("checkVat failed",
			zap.String(utils.FieldVATNumber, identifier),
			zap.String(utils.FieldKind, kind),
			zap.String(utils.FieldToken, TokenOf(err)))
		return nil, err
	}
	return result, nil
}

func (c *viesClient) checkVat(ctx context.Context, countryCode, number string) (*vat.VerificationResult, error) {
	response, err := c.DoReq(ctx, http.MethodPost, c.url, buildCheckVatRequest(countryCode, number))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if response.StatusCode() == http.StatusNoContent {
		return nil, newRegistryError(KindTransport, TokenNoContent, nil)
	}
	return parseCheckVatResponse(response.Bytes())
}

func buildCheckVatRequest(countryCode, number string) string {
	var buf bytes.Buffer
	buf.WriteString(checkVatEnvelopeHead)
	buf.WriteString("<urn:countryCode>")
	_ = xml.EscapeText(&buf, []byte(countryCode))
	buf.WriteString("</urn:countryCode><urn:vatNumber>")
	_ = xml.EscapeText(&buf, []byte(number))
	buf.WriteString("</urn:vatNumber>")
	buf.WriteString(checkVatEnvelopeTail)
	return buf.String()
}

// parseCheckVatResponse maps a reply body onto a result or a classified error.
func parseCheckVatResponse(body []byte) (*vat.VerificationResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newRegistryError(KindTransport, TokenNoContent, nil)
	}

	var envelope soapEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, newRegistryError(KindParseError, TokenParseError, err)
	}

	reply := envelope.Body.CheckVatResponse
	if reply == nil {
		// Without a checkVatResponse the marker may name the cause; result text never does.
		if hasBlockedMarker(body) {
			return nil, newRegistryError(KindBlocked, TokenBlocked, nil)
		}
		var cause error
		if fault := envelope.Body.Fault; fault != nil {
			cause = errors.New(strings.TrimSpace(fault.FaultString))
		}
		return nil, newRegistryError(KindInvalidReply, TokenInvalid, cause)
	}

	requestDate := reply.RequestDate
	if len(requestDate) > requestDateLength {
		requestDate = requestDate[:requestDateLength]
	}
	return &vat.VerificationResult{
		CountryCode: reply.CountryCode,
		VatNumber:   reply.VatNumber,
		RequestDate: requestDate,
		Valid:       reply.Valid == "true",
		Name:        reply.Name,
		Address:     reply.Address,
	}, nil
}

// hasBlockedMarker finds IP_BLOCKED as an element name or as element text, e.g. a faultstring.
func hasBlockedMarker(body []byte) bool {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err != nil {
			return false
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == TokenBlocked {
				return true
			}
		case xml.CharData:
			if strings.TrimSpace(string(t)) == TokenBlocked {
				return true
			}
		}
	}
}

// classifyTransportError turns a DoReq failure into a RegistryError.
func classifyTransportError(err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		// VIES reports faults, including IP_BLOCKED, with HTTP 500.
		if hasBlockedMarker([]byte(httpErr.Body)) {
			return newRegistryError(KindBlocked, TokenBlocked, err)
		}
		return newRegistryError(KindTransport, TokenError, err)
	}

	if errors.Is(err, context.Canceled) {
		return newRegistryError(KindTransport, TokenAbort, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newRegistryError(KindTransport, TokenTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newRegistryError(KindTransport, TokenTimeout, err)
	}
	return newRegistryError(KindTransport, TokenError, err)
}
