package sifen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	pkgsifen "github.com/jhoicas/Facturacion-api/pkg/sifen"
)

// Issuer datos fijos del emisor (la empresa que factura los proyectos).
type Issuer struct {
	RUC   string // con DV: "80069563-1"
	Name  string
	CSCID string
	CSC   string
}

// docNumber establecimiento, punto de expedición y número a partir de "001-001-0000042".
type docNumber struct {
	Establishment   string
	ExpeditionPoint string
	Number          string
}

func parseInvoiceNumber(n string) (docNumber, error) {
	parts := strings.Split(strings.TrimSpace(n), "-")
	if len(parts) != 3 || len(parts[0]) != 3 || len(parts[1]) != 3 || len(parts[2]) != 7 {
		return docNumber{}, fmt.Errorf("número de factura %q no tiene formato EEE-PPP-NNNNNNN", n)
	}
	return docNumber{Establishment: parts[0], ExpeditionPoint: parts[1], Number: parts[2]}, nil
}

// securityCode dCodSeg: 9 dígitos aleatorios por documento.
func securityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%09d", n.Int64()), nil
}

// buildCDC calcula el CDC del documento que se va a enviar.
func buildCDC(issuer Issuer, req billing.FiscalRequest) (string, error) {
	num, err := parseInvoiceNumber(req.InvoiceNumber)
	if err != nil {
		return "", err
	}
	code, err := securityCode()
	if err != nil {
		return "", fmt.Errorf("generar código de seguridad: %w", err)
	}
	return pkgsifen.BuildCDC(pkgsifen.CDCParams{
		DocumentType:    docTypeInvoice,
		IssuerRUC:       issuer.RUC,
		Establishment:   num.Establishment,
		ExpeditionPoint: num.ExpeditionPoint,
		DocumentNumber:  num.Number,
		TaxpayerType:    taxpayerJuridica,
		IssueDate:       req.IssuedAt,
		EmissionType:    emissionNormal,
		SecurityCode:    code,
	})
}

// buildRDE arma el <rDE> sin firma. El QR se agrega después de firmar (usa el DigestValue).
func buildRDE(issuer Issuer, req billing.FiscalRequest, cdc string) (*etree.Element, error) {
	num, err := parseInvoiceNumber(req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	rucBase, rucDV, _ := strings.Cut(issuer.RUC, "-")

	rde := etree.NewElement("rDE")
	rde.CreateAttr("xmlns", NamespaceSIFEN)
	rde.CreateElement("dVerFor").SetText(formatVersion)

	de := rde.CreateElement("DE")
	de.CreateAttr("Id", cdc)
	de.CreateElement("dDVId").SetText(cdc[len(cdc)-1:])
	de.CreateElement("dFecFirma").SetText(req.IssuedAt.Format("2006-01-02T15:04:05"))
	de.CreateElement("dSisFact").SetText("1")

	ope := de.CreateElement("gOpeDE")
	ope.CreateElement("iTipEmi").SetText(fmt.Sprint(emissionNormal))
	ope.CreateElement("dCodSeg").SetText(cdc[34:43])

	timb := de.CreateElement("gTimb")
	timb.CreateElement("iTiDE").SetText(fmt.Sprint(docTypeInvoice))
	timb.CreateElement("dEst").SetText(num.Establishment)
	timb.CreateElement("dPunExp").SetText(num.ExpeditionPoint)
	timb.CreateElement("dNumDoc").SetText(num.Number)

	gral := de.CreateElement("gDatGralOpe")
	gral.CreateElement("dFeEmiDE").SetText(req.IssuedAt.Format("2006-01-02T15:04:05"))
	com := gral.CreateElement("gOpeCom")
	com.CreateElement("cMoneOpe").SetText(req.Currency)
	if req.Currency != "PYG" {
		com.CreateElement("dCondTiCam").SetText("1")
		com.CreateElement("dTiCam").SetText(exchangeRate(req.Amount, req.TotalAmount).String())
	}

	emis := gral.CreateElement("gEmis")
	emis.CreateElement("dRucEm").SetText(rucBase)
	emis.CreateElement("dDVEmi").SetText(rucDV)
	emis.CreateElement("dNomEmi").SetText(issuer.Name)

	rec := gral.CreateElement("gDatRec")
	if base, dv, ok := receiverRUC(req.Client.RUC); ok {
		rec.CreateElement("iNatRec").SetText("1")
		rec.CreateElement("dRucRec").SetText(base)
		rec.CreateElement("dDVRec").SetText(dv)
	} else {
		rec.CreateElement("iNatRec").SetText("2")
	}
	rec.CreateElement("dNomRec").SetText(req.Client.Name)
	if req.Client.Email != "" {
		rec.CreateElement("dEmailRec").SetText(req.Client.Email)
	}

	tipo := de.CreateElement("gDtipDE")
	cond := tipo.CreateElement("gCamCond")
	cond.CreateElement("iCondOpe").SetText("2") // crédito: se paga contra vencimiento
	cond.CreateElement("gPagCred").CreateElement("dPlazoCre").SetText(req.DueDate.Format("2006-01-02"))

	item := tipo.CreateElement("gCamItem")
	item.CreateElement("dCodInt").SetText(req.InvoiceNumber)
	desc := req.Description
	if desc == "" {
		desc = "Servicios del proyecto"
	}
	item.CreateElement("dDesProSer").SetText(desc)
	item.CreateElement("dCantProSer").SetText("1")
	valor := item.CreateElement("gValorItem")
	valor.CreateElement("dPUniProSer").SetText(req.Amount.StringFixed(2))
	valor.CreateElement("dTotBruOpeItem").SetText(req.Amount.StringFixed(2))

	tot := de.CreateElement("gTotSub")
	tot.CreateElement("dTotOpe").SetText(req.Amount.StringFixed(2))
	tot.CreateElement("dTotGralOpe").SetText(req.Amount.StringFixed(2))
	tot.CreateElement("dTotalGs").SetText(req.TotalAmount.StringFixed(0))

	return rde, nil
}

// appendQR agrega gCamFuFD con la URL del QR (siempre el último hijo de rDE).
func appendQR(rde *etree.Element, qr string) {
	rde.CreateElement("gCamFuFD").CreateElement("dCarQR").SetText(qr)
}

func qrParams(req billing.FiscalRequest, cdc, digest, cscID string) pkgsifen.QRParams {
	receiver := ""
	if base, _, ok := receiverRUC(req.Client.RUC); ok {
		receiver = base
	}
	return pkgsifen.QRParams{
		CDC:         cdc,
		IssuedAt:    req.IssuedAt,
		ReceiverRUC: receiver,
		Total:       req.Amount.StringFixed(2),
		Items:       1,
		DigestValue: digest,
		CSCID:       cscID,
	}
}

func receiverRUC(ruc string) (base, dv string, ok bool) {
	if pkgsifen.ValidateRUC(ruc) != nil {
		return "", "", false
	}
	base, dv, _ = strings.Cut(strings.TrimSpace(ruc), "-")
	return base, dv, true
}

func exchangeRate(amount, total decimal.Decimal) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}
	return total.Div(amount).Round(2)
}

// issueTime normaliza la fecha de emisión a segundos (formato del DE).
func issueTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Truncate(time.Second)
}
