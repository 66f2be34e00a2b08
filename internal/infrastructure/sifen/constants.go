package sifen

// Ambientes SIFEN.
const (
	EnvDev  = "dev"  // local: no envía a SIFEN, emite con SimulatedGateway
	EnvTest = "test" // ambiente de pruebas de la SET
	EnvProd = "prod" // producción
)

const (
	baseURLTest = "https://sifen-test.set.gov.py"
	baseURLProd = "https://sifen.set.gov.py"

	qrURLTest = "https://ekuatia.set.gov.py/consultas-test/qr"
	qrURLProd = "https://ekuatia.set.gov.py/consultas/qr"

	// recibePath servicio síncrono de recepción de un DE.
	recibePath = "/de/ws/sync/recibe.wsdl"
)

// Namespaces y algoritmos del DE y de la firma XMLDSig.
const (
	NamespaceSIFEN = "http://ekuatia.set.gov.py/sifen/xsd"
	NamespaceSOAP  = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"

	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Valores fijos del DE para facturas de servicios.
const (
	formatVersion    = "150"
	docTypeInvoice   = 1 // iTiDE: factura electrónica
	emissionNormal   = 1 // iTipEmi
	taxpayerJuridica = 2
	estadoAprobado   = "Aprobado"
	estadoRechazado  = "Rechazado"
)

// DefaultBaseURL URL del servicio según el ambiente; vacío para dev.
func DefaultBaseURL(env string) string {
	switch env {
	case EnvProd:
		return baseURLProd
	case EnvTest:
		return baseURLTest
	}
	return ""
}

// DefaultQRBaseURL URL de consulta pública del QR según el ambiente.
func DefaultQRBaseURL(env string) string {
	if env == EnvProd {
		return qrURLProd
	}
	return qrURLTest
}
