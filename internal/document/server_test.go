package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/youbihi/facture-tracker/internal/currency"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	rebuildServer := func() {
		service = NewService(db, extractor, storage, newTestAnalyzer())
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		auth = BasicAuth{}
		rebuildServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		When("request method is GET", func() {
			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return HTML containing Facture Tracker", func() {
				resp, err := http.Get(ghttpServer.URL() + "/")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring("Facture Tracker"))
			})
		})
	})

	Describe("handleListDocuments", func() {
		When("documents exist", func() {
			BeforeEach(func() {
				db.documents["id1"] = &Document{ID: "id1", Name: "Facture 1"}
				db.documents["id2"] = &Document{ID: "id2", Name: "Facture 2"}
				rebuildServer()
			})

			It("should return all documents", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var documents []*Document
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &documents)).NotTo(HaveOccurred())
				Expect(documents).To(HaveLen(2))
			})

			It("should set Content-Type to application/json", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no documents exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var documents []*Document
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &documents)).NotTo(HaveOccurred())
				Expect(documents).To(BeEmpty())
			})
		})

		When("service returns an error", func() {
			BeforeEach(func() {
				db.listErr = errors.New("service error")
				rebuildServer()
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleUploadDocument", func() {
		makeUpload := func(filename string, data []byte) (*bytes.Buffer, string) {
			var b bytes.Buffer
			writer := multipart.NewWriter(&b)
			part, _ := writer.CreateFormFile("file", filename)
			part.Write(data)
			writer.Close()
			return &b, writer.FormDataContentType()
		}

		When("upload succeeds", func() {
			It("should return status Created", func() {
				body, contentType := makeUpload("facture.pdf", []byte("fake pdf data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return a document with an ID and analysis", func() {
				body, contentType := makeUpload("facture.pdf", []byte("fake pdf data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var doc Document
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &doc)).NotTo(HaveOccurred())
				Expect(doc.ID).NotTo(BeEmpty())
				Expect(doc.Analysis).NotTo(BeNil())
				Expect(doc.Analysis.Financial.Amount).To(Equal(500.0))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("invalid multipart form", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("text extraction fails", func() {
			BeforeEach(func() {
				extractor.errFor["fake pdf data"] = errors.New("unreadable scan")
				rebuildServer()
			})

			It("should return the error in JSON", func() {
				body, contentType := makeUpload("facture.pdf", []byte("fake pdf data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var response map[string]string
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &response)).NotTo(HaveOccurred())
				Expect(response["error"]).To(ContainSubstring("unreadable scan"))
			})
		})
	})

	Describe("handleUploadBatch", func() {
		makeBatch := func(files map[string][]byte) (*bytes.Buffer, string) {
			var b bytes.Buffer
			writer := multipart.NewWriter(&b)
			for name, data := range files {
				part, _ := writer.CreateFormFile("files", name)
				part.Write(data)
			}
			writer.Close()
			return &b, writer.FormDataContentType()
		}

		When("every file processes cleanly", func() {
			It("should return the stored documents", func() {
				body, contentType := makeBatch(map[string][]byte{
					"a.pdf": []byte("first"),
					"b.pdf": []byte("second"),
				})
				resp, err := http.Post(ghttpServer.URL()+"/api/documents/batch", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var outcome BatchOutcome
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &outcome)).NotTo(HaveOccurred())
				Expect(outcome.Documents).To(HaveLen(2))
				Expect(outcome.Errors).To(BeEmpty())
			})
		})

		When("one file fails to extract", func() {
			BeforeEach(func() {
				extractor.errFor["bad"] = errors.New("unreadable scan")
				rebuildServer()
			})

			It("should report the failure alongside the successes", func() {
				body, contentType := makeBatch(map[string][]byte{
					"good.pdf": []byte("good"),
					"bad.pdf":  []byte("bad"),
				})
				resp, err := http.Post(ghttpServer.URL()+"/api/documents/batch", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var outcome BatchOutcome
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &outcome)).NotTo(HaveOccurred())
				Expect(outcome.Documents).To(HaveLen(1))
				Expect(outcome.Errors).To(HaveLen(1))
				Expect(outcome.Errors[0].Name).To(Equal("bad.pdf"))
			})
		})

		When("no files are provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/documents/batch", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetDocument", func() {
		When("document exists", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{ID: "test-id", Name: "Facture Mars"}
				rebuildServer()
			})

			It("should return the correct document", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/test-id")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var got Document
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &got)).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal("test-id"))
				Expect(got.Name).To(Equal("Facture Mars"))
			})
		})

		When("document does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetDocumentFile", func() {
		When("document and file exist", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{
					ID:          "test-id",
					Filename:    "test-file.pdf",
					ContentType: "application/pdf",
				}
				storage.files["test-file.pdf"] = []byte("file content")
				rebuildServer()
			})

			It("should return the file content", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("file content"))
			})

			It("should set the correct Content-Type header", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			})
		})

		When("document does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/nonexistent/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteDocument", func() {
		When("deletion succeeds", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{ID: "test-id", Filename: "test-file.pdf"}
				storage.files["test-file.pdf"] = []byte("data")
				rebuildServer()
			})

			It("should return status No Content", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/documents/test-id", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(db.documents).NotTo(HaveKey("test-id"))
			})
		})

		When("document does not exist", func() {
			It("should return status Internal Server Error", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/documents/nonexistent", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleAnalyzeText", func() {
		When("text is provided", func() {
			It("should return the analysis", func() {
				body, _ := json.Marshal(map[string]string{
					"name": "facture.pdf",
					"text": "Facture N 2025-001\nTotal: 500 EUR",
				})
				resp, err := http.Post(ghttpServer.URL()+"/api/analyze", "application/json", bytes.NewBuffer(body))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var result map[string]interface{}
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &result)).NotTo(HaveOccurred())
				Expect(result["name"]).To(Equal("facture.pdf"))
				Expect(result).To(HaveKey("financial_data"))
				Expect(result).To(HaveKey("currency_analysis"))
			})
		})

		When("text is missing", func() {
			It("should return status Bad Request", func() {
				body, _ := json.Marshal(map[string]string{"name": "facture.pdf"})
				resp, err := http.Post(ghttpServer.URL()+"/api/analyze", "application/json", bytes.NewBuffer(body))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/analyze", "application/json", bytes.NewBufferString("invalid json"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleAnalyzeBatch", func() {
		When("documents are provided", func() {
			It("should analyze each one", func() {
				body, _ := json.Marshal(map[string]interface{}{
					"documents": []map[string]string{
						{"name": "a.pdf", "text": "Facture Total: 100 EUR"},
						{"name": "b.pdf", "text": "Reçu Total: 150 DH"},
					},
				})
				resp, err := http.Post(ghttpServer.URL()+"/api/analyze/batch", "application/json", bytes.NewBuffer(body))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var result struct {
					Results []map[string]interface{} `json:"results"`
				}
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &result)).NotTo(HaveOccurred())
				Expect(result.Results).To(HaveLen(2))
			})
		})

		When("the document list is empty", func() {
			It("should return status Bad Request", func() {
				body, _ := json.Marshal(map[string]interface{}{"documents": []map[string]string{}})
				resp, err := http.Post(ghttpServer.URL()+"/api/analyze/batch", "application/json", bytes.NewBuffer(body))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleConvert", func() {
		It("should convert the amount", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/convert?amount=100&from=EUR&to=MAD")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var conversion currency.Conversion
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &conversion)).NotTo(HaveOccurred())
			Expect(conversion.ConvertedAmount).To(BeNumerically("~", 1085.7763, 1e-3))
			Expect(conversion.ToCurrency).To(Equal("MAD"))
		})

		It("should default the target to dirhams", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/convert?amount=50&from=usd")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var conversion currency.Conversion
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &conversion)).NotTo(HaveOccurred())
			Expect(conversion.FromCurrency).To(Equal("USD"))
			Expect(conversion.ToCurrency).To(Equal("MAD"))
		})

		When("the amount is invalid", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/convert?amount=abc&from=EUR")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the source currency is missing", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/convert?amount=100")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetRates", func() {
		It("should return the current snapshot", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/rates")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var snapshot currency.Snapshot
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &snapshot)).NotTo(HaveOccurred())
			Expect(snapshot.BaseCurrency).To(Equal("MAD"))
			Expect(snapshot.Rates).To(HaveKey("EUR"))
		})

		It("should return a historical snapshot for a date", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/rates?date=2025-03-01")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var snapshot currency.Snapshot
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &snapshot)).NotTo(HaveOccurred())
			Expect(snapshot.IsHistorical).To(BeTrue())
			Expect(snapshot.Date).To(Equal("2025-03-01"))
		})
	})

	Describe("authenticate", func() {
		When("no auth is configured", func() {
			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(server.authenticate(req)).To(BeTrue())
			})
		})

		When("valid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				rebuildServer()
			})

			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:pass"))
				req.Header.Set("Authorization", "Basic "+credentials)
				Expect(server.authenticate(req)).To(BeTrue())
			})
		})

		When("invalid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				rebuildServer()
			})

			It("should return false", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:wrong"))
				req.Header.Set("Authorization", "Basic "+credentials)
				Expect(server.authenticate(req)).To(BeFalse())
			})
		})
	})

	Describe("requireAuth", func() {
		When("request is unauthorized", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				rebuildServer()
			})

			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})

			It("should set WWW-Authenticate header", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			})
		})
	})

	Describe("handleStaticCSS", func() {
		It("should return CSS content", func() {
			resp, err := http.Get(ghttpServer.URL() + "/static/app.css")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/css"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(body)).To(BeNumerically(">", 0))
		})
	})

	Describe("handleStaticJS", func() {
		It("should return JavaScript content", func() {
			resp, err := http.Get(ghttpServer.URL() + "/static/app.js")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(body)).To(BeNumerically(">", 0))
		})
	})
})
