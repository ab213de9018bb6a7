package mailbox

import "strings"

func crlf(s string) string { return strings.ReplaceAll(s, "\n", "\r\n") }

var dsnUnknownUser = crlf(`From: MAILER-DAEMON@mx.example.net
To: sender@example.org
Subject: Undelivered Mail Returned to Sender
MIME-Version: 1.0
Content-Type: multipart/report; report-type=delivery-status; boundary="BOUNDARY"

This is a MIME-encapsulated message.

--BOUNDARY
Content-Type: text/plain; charset=us-ascii

This is the mail system at host mx.example.net.

<john@example.com>: host mx.example.com said: 550 5.1.1 unknown user

--BOUNDARY
Content-Type: message/delivery-status

Reporting-MTA: dns; mx.example.net

Final-Recipient: rfc822; john@example.com
Action: failed
Status: 5.1.1
Diagnostic-Code: smtp; 550 5.1.1 unknown user

--BOUNDARY
Content-Type: message/rfc822

From: sender@example.org
Subject: hello

hi
--BOUNDARY--
`)

var bodyMailboxFull = crlf(`From: postmaster@mx.example.net
Subject: Delivery failure

bob@example.com: mailbox is full
`)

var autoReply = crlf(`From: Carol <carol@example.com>
Subject: Re: hello
Auto-Submitted: auto-replied

Thanks for your email, I will get back to you soon.
`)

var plainMessage = crlf(`From: Alice <alice@example.org>
Subject: lunch

See you at noon.
`)

var pdfMessage = crlf(`From: scanner@example.org
Subject: scan
Content-Type: application/pdf
Content-Transfer-Encoding: base64

JVBERi0xLjQK
`)
