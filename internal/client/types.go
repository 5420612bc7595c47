package client

import "encoding/xml"

// Tags carry no namespace so elements match by local name under any prefix.

type soapEnvelope struct {
	XMLName xml.Name
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	CheckVatResponse *checkVatResponse `xml:"checkVatResponse"`
	Fault            *soapFault        `xml:"Fault"`
}

// checkVatResponse is the VIES reply payload.
type checkVatResponse struct {
	CountryCode string `xml:"countryCode"`
	VatNumber   string `xml:"vatNumber"`
	RequestDate string `xml:"requestDate"`
	Valid       string `xml:"valid"`
	Name        string `xml:"name"`
	Address     string `xml:"address"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}
