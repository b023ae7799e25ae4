package devserver_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deskline.app/chatsync/core/config"
	"deskline.app/chatsync/internal/devserver"
	"deskline.app/chatsync/internal/model"
)

var _ = Describe("ChatHandler", func() {
	var router *gin.Engine

	newRouter := func(rateLimit int) *gin.Engine {
		return devserver.NewRouter(config.DevServerConfig{
			JWTSecret: "test-secret",
			RateLimit: rateLimit,
		})
	}

	BeforeEach(func() {
		router = newRouter(0)
	})

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, out any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), out)).To(Succeed())
	}

	mint := func(name, email, role string) (token, userID string) {
		rec := do(http.MethodPost, "/auth/dev-token", "", gin.H{
			"name":  name,
			"email": email,
			"role":  role,
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var resp struct {
			Token  string `json:"token"`
			UserID string `json:"userId"`
		}
		decode(rec, &resp)
		return resp.Token, resp.UserID
	}

	sendMessage := func(token, recipientID, content string) *httptest.ResponseRecorder {
		return do(http.MethodPost, "/api/chat/messages", token, gin.H{
			"recipientId": recipientID,
			"content":     content,
			"messageType": "text",
		})
	}

	Describe("token minting", func() {
		It("rejects an unknown role", func() {
			rec := do(http.MethodPost, "/auth/dev-token", "", gin.H{
				"name":  "Eve",
				"email": "eve@corp.test",
				"role":  "superuser",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("issues a token that authenticates against the chat API", func() {
			token, _ := mint("Ann", "ann@corp.test", "staff")
			rec := do(http.MethodGet, "/api/chat/employees", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("authentication", func() {
		It("rejects requests without a bearer token", func() {
			rec := do(http.MethodGet, "/api/chat/employees", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a token signed with the wrong secret", func() {
			rec := do(http.MethodGet, "/api/chat/employees", "not-a-valid-token", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))

			var resp struct {
				Error string `json:"error"`
			}
			decode(rec, &resp)
			Expect(resp.Error).To(Equal("invalid token"))
		})
	})

	Describe("employee directory", func() {
		It("lists staff and admins but never customers", func() {
			token, _ := mint("Ann", "ann@corp.test", "staff")
			mint("Bo", "bo@corp.test", "admin")
			mint("Cara", "cara@customer.test", "customer")

			rec := do(http.MethodGet, "/api/chat/employees", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp struct {
				Employees []model.Employee `json:"employees"`
			}
			decode(rec, &resp)
			Expect(resp.Employees).To(HaveLen(2))
			for _, e := range resp.Employees {
				Expect(e.Role).NotTo(Equal(model.RoleCustomer))
			}
		})
	})

	Describe("status", func() {
		It("patches presence and reflects it in the directory", func() {
			token, userID := mint("Ann", "ann@corp.test", "staff")

			rec := do(http.MethodPatch, "/api/chat/status", token, gin.H{
				"isOnline": true,
				"status":   "reviewing tickets",
			})
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			rec = do(http.MethodGet, "/api/chat/employees", token, nil)
			var resp struct {
				Employees []model.Employee `json:"employees"`
			}
			decode(rec, &resp)

			var me *model.Employee
			for i := range resp.Employees {
				if resp.Employees[i].ID == userID {
					me = &resp.Employees[i]
				}
			}
			Expect(me).NotTo(BeNil())
			Expect(me.IsOnline).To(BeTrue())
			Expect(me.Status).To(Equal("reviewing tickets"))
			Expect(me.LastSeen).NotTo(BeNil())
		})
	})

	Describe("messaging", func() {
		var (
			annToken, annID string
			boToken, boID   string
		)

		BeforeEach(func() {
			annToken, annID = mint("Ann", "ann@corp.test", "staff")
			boToken, boID = mint("Bo", "bo@corp.test", "staff")
		})

		It("returns 404 for an unknown recipient", func() {
			rec := sendMessage(annToken, "does-not-exist", "hello")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("keeps one conversation per pair regardless of direction", func() {
			Expect(sendMessage(annToken, boID, "hi bo").Code).To(Equal(http.StatusCreated))
			Expect(sendMessage(boToken, annID, "hi ann").Code).To(Equal(http.StatusCreated))

			for _, token := range []string{annToken, boToken} {
				rec := do(http.MethodGet, "/api/chat/conversations", token, nil)
				Expect(rec.Code).To(Equal(http.StatusOK))
				var resp struct {
					Conversations []model.Conversation `json:"conversations"`
				}
				decode(rec, &resp)
				Expect(resp.Conversations).To(HaveLen(1))
			}
		})

		It("assigns server ids and echoes the sender snapshot", func() {
			rec := sendMessage(annToken, boID, "hello")
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Message model.ChatMessage `json:"message"`
			}
			decode(rec, &resp)
			Expect(resp.Message.ID).NotTo(BeEmpty())
			Expect(resp.Message.ConversationID).NotTo(BeEmpty())
			Expect(resp.Message.SenderID).To(Equal(annID))
			Expect(resp.Message.Sender.Name).To(Equal("Ann"))
			Expect(resp.Message.MessageType).To(Equal(model.MessageTypeText))
		})

		It("counts unread for the recipient and clears it on thread fetch", func() {
			sendMessage(annToken, boID, "one")
			sendMessage(annToken, boID, "two")

			rec := do(http.MethodGet, "/api/chat/unread-count", boToken, nil)
			var count struct {
				UnreadCount int `json:"unreadCount"`
			}
			decode(rec, &count)
			Expect(count.UnreadCount).To(Equal(2))

			// The sender's own messages are not unread for the sender.
			rec = do(http.MethodGet, "/api/chat/unread-count", annToken, nil)
			decode(rec, &count)
			Expect(count.UnreadCount).To(BeZero())

			rec = do(http.MethodGet, "/api/chat/conversations", boToken, nil)
			var convs struct {
				Conversations []model.Conversation `json:"conversations"`
			}
			decode(rec, &convs)
			Expect(convs.Conversations[0].UnreadCount).To(Equal(2))
			convID := convs.Conversations[0].ID

			// Fetching the thread is the read receipt.
			rec = do(http.MethodGet, "/api/chat/conversations/"+convID+"/messages", boToken, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var msgs struct {
				Messages []model.ChatMessage `json:"messages"`
			}
			decode(rec, &msgs)
			Expect(msgs.Messages).To(HaveLen(2))
			for _, m := range msgs.Messages {
				Expect(m.IsRead).To(BeTrue())
				Expect(m.ReadAt).NotTo(BeNil())
			}

			rec = do(http.MethodGet, "/api/chat/unread-count", boToken, nil)
			decode(rec, &count)
			Expect(count.UnreadCount).To(BeZero())
		})

		It("denies thread access to non-participants", func() {
			sendMessage(annToken, boID, "private")
			rec := do(http.MethodGet, "/api/chat/conversations", annToken, nil)
			var convs struct {
				Conversations []model.Conversation `json:"conversations"`
			}
			decode(rec, &convs)
			convID := convs.Conversations[0].ID

			outsiderToken, _ := mint("Eve", "eve@corp.test", "staff")
			rec = do(http.MethodGet, "/api/chat/conversations/"+convID+"/messages", outsiderToken, nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("accepts file messages with an attachment", func() {
			rec := do(http.MethodPost, "/api/chat/messages/file", annToken, gin.H{
				"recipientId":    boID,
				"attachmentUrl":  "/uploads/abc",
				"attachmentName": "report.pdf",
				"messageType":    "file",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Message model.ChatMessage `json:"message"`
			}
			decode(rec, &resp)
			Expect(resp.Message.MessageType).To(Equal(model.MessageTypeFile))
			Expect(resp.Message.AttachmentURL).To(Equal("/uploads/abc"))
			Expect(resp.Message.AttachmentName).To(Equal("report.pdf"))
		})
	})

	Describe("uploads", func() {
		It("stores the file and serves it back", func() {
			token, _ := mint("Ann", "ann@corp.test", "staff")

			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", "shot.png")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("png-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/api/chat/upload", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var resp struct {
				URL      string `json:"url"`
				Filename string `json:"filename"`
			}
			decode(rec, &resp)
			Expect(resp.URL).To(HavePrefix("/uploads/"))
			Expect(resp.Filename).To(Equal("shot.png"))

			// The download endpoint is public.
			rec = do(http.MethodGet, resp.URL, "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("png-bytes"))
		})

		It("rejects a request without a file field", func() {
			token, _ := mint("Ann", "ann@corp.test", "staff")
			rec := do(http.MethodPost, "/api/chat/upload", token, gin.H{})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("throttling", func() {
		It("answers 429 with a Retry-After hint once the window is spent", func() {
			router = newRouter(2)
			token, _ := mint("Ann", "ann@corp.test", "staff")

			Expect(do(http.MethodGet, "/api/chat/employees", token, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/chat/employees", token, nil).Code).To(Equal(http.StatusOK))

			rec := do(http.MethodGet, "/api/chat/employees", token, nil)
			Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())

			var resp struct {
				Error string `json:"error"`
			}
			decode(rec, &resp)
			Expect(resp.Error).To(Equal("rate limit exceeded"))
		})

		It("throttles tokens independently", func() {
			router = newRouter(2)
			annToken, _ := mint("Ann", "ann@corp.test", "staff")
			boToken, _ := mint("Bo", "bo@corp.test", "staff")

			Expect(do(http.MethodGet, "/api/chat/employees", annToken, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/chat/employees", annToken, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/chat/employees", annToken, nil).Code).To(Equal(http.StatusTooManyRequests))

			Expect(do(http.MethodGet, "/api/chat/employees", boToken, nil).Code).To(Equal(http.StatusOK))
		})
	})

	Describe("conversation ordering", func() {
		It("lists the most recently active conversation first", func() {
			annToken, _ := mint("Ann", "ann@corp.test", "staff")
			_, boID := mint("Bo", "bo@corp.test", "staff")
			_, caraID := mint("Cara", "cara@corp.test", "staff")

			sendMessage(annToken, boID, "first thread")
			sendMessage(annToken, caraID, "second thread")

			rec := do(http.MethodGet, "/api/chat/conversations", annToken, nil)
			var resp struct {
				Conversations []model.Conversation `json:"conversations"`
			}
			decode(rec, &resp)
			Expect(resp.Conversations).To(HaveLen(2))
			Expect(resp.Conversations[0].OtherUser.ID).To(Equal(caraID))
		})
	})
})

var _ = Describe("Router", func() {
	It("exposes the upload download without authentication", func() {
		router := devserver.NewRouter(config.DevServerConfig{JWTSecret: "s"})
		req := httptest.NewRequest(http.MethodGet, "/uploads/nope", strings.NewReader(""))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
