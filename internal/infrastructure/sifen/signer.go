package sifen

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// Signer firma el DE con XMLDSig enveloped (RSA-SHA256), referenciando el Id del <DE>.
type Signer struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// NewSigner valida que el certificado traiga llave privada RSA.
func NewSigner(cert tls.Certificate) (*Signer, error) {
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sifen: el certificado debe incluir llave privada RSA")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("sifen: certificado vacío")
	}
	leaf := cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("sifen: parsear certificado: %w", err)
		}
		leaf = parsed
	}
	return &Signer{key: priv, cert: leaf}, nil
}

// Sign agrega <Signature> como hermano siguiente del <DE> dentro de rDE y devuelve el
// DigestValue en base64 (va en el QR).
func (s *Signer) Sign(rDE *etree.Element) (string, error) {
	de := rDE.SelectElement("DE")
	if de == nil {
		return "", fmt.Errorf("sifen: rDE sin elemento DE")
	}
	id := de.SelectAttrValue("Id", "")
	if id == "" {
		return "", fmt.Errorf("sifen: DE sin atributo Id")
	}

	// 1) Digest del DE canónico. Se serializa con su namespace por defecto explícito.
	deCopy := de.Copy()
	if deCopy.SelectAttr("xmlns") == nil {
		deCopy.CreateAttr("xmlns", NamespaceSIFEN)
	}
	canonicalDE, err := canonicalize(deCopy)
	if err != nil {
		return "", fmt.Errorf("sifen: canonicalizar DE: %w", err)
	}
	digest := sha256.Sum256(canonicalDE)
	digestB64 := base64.StdEncoding.EncodeToString(digest[:])

	// 2) SignedInfo firmado con la llave del certificado.
	signedInfo := buildSignedInfo("#"+id, digestB64)
	canonicalSI, err := canonicalize(signedInfo)
	if err != nil {
		return "", fmt.Errorf("sifen: canonicalizar SignedInfo: %w", err)
	}
	hash := sha256.Sum256(canonicalSI)
	sigValue, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("sifen: firmar SignedInfo: %w", err)
	}

	// 3) Signature completa: SignedInfo + SignatureValue + KeyInfo.
	signature := etree.NewElement("Signature")
	signature.CreateAttr("xmlns", NamespaceDS)
	si := signedInfo.Copy()
	si.RemoveAttr("xmlns")
	signature.AddChild(si)
	signature.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(sigValue))
	signature.CreateElement("KeyInfo").CreateElement("X509Data").CreateElement("X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(s.cert.Raw))

	rDE.InsertChildAt(de.Index()+1, signature)
	return digestB64, nil
}

// VerifyDigest recalcula el digest del DE y lo compara con el de la firma. Se usa en tests
// y para descartar documentos alterados después de firmar.
func VerifyDigest(rDE *etree.Element) error {
	de := rDE.SelectElement("DE")
	sig := rDE.SelectElement("Signature")
	if de == nil || sig == nil {
		return fmt.Errorf("sifen: falta DE o Signature")
	}
	want := sig.FindElement("./SignedInfo/Reference/DigestValue")
	if want == nil {
		return fmt.Errorf("sifen: firma sin DigestValue")
	}
	deCopy := de.Copy()
	if deCopy.SelectAttr("xmlns") == nil {
		deCopy.CreateAttr("xmlns", NamespaceSIFEN)
	}
	canonicalDE, err := canonicalize(deCopy)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(canonicalDE)
	if base64.StdEncoding.EncodeToString(digest[:]) != want.Text() {
		return fmt.Errorf("sifen: el digest del DE no coincide con la firma")
	}
	return nil
}

func buildSignedInfo(uri, digestB64 string) *etree.Element {
	si := etree.NewElement("SignedInfo")
	si.CreateAttr("xmlns", NamespaceDS)
	si.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	si.CreateElement("SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)
	ref := si.CreateElement("Reference")
	ref.CreateAttr("URI", uri)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgC14N)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("DigestValue").SetText(digestB64)
	return si
}

func canonicalize(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el)
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
