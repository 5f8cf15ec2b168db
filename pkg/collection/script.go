package collection

import "strings"

// AuthScript runs before every request in the collection. It keeps a bearer
// token in the active environment: when jwt_expiry is unset or less than a
// minute away it exchanges client_id/client_secret at auth_url for a new
// token, otherwise the stored token is reused. Missing settings or a failed
// exchange throw, so the request is never sent without a token.
const AuthScript = `const now = Math.floor(Date.now() / 1000);
const expiry = Number(pm.environment.get("jwt_expiry"));
const EXPIRY_BUFFER = 60;

if (!expiry || now >= expiry - EXPIRY_BUFFER) {
    const authUrl = pm.environment.get("auth_url");
    const clientId = pm.environment.get("client_id");
    const clientSecret = pm.environment.get("client_secret");

    if (!authUrl || !clientId || !clientSecret) {
        throw new Error("auth_url, client_id and client_secret must be set in the environment");
    }

    pm.sendRequest({
        url: authUrl + "/oauth/token",
        method: "POST",
        header: { "Content-Type": "application/x-www-form-urlencoded" },
        body: {
            mode: "urlencoded",
            urlencoded: [
                { key: "grant_type", value: "client_credentials" },
                { key: "client_id", value: clientId },
                { key: "client_secret", value: clientSecret }
            ]
        }
    }, function (err, res) {
        if (err) {
            throw new Error("token request failed: " + err);
        }
        if (res.code !== 200) {
            throw new Error("token request returned " + res.code + " " + res.status);
        }
        const data = res.json();
        if (!data.access_token) {
            throw new Error("token response has no access_token");
        }
        pm.environment.set("jwt_token", data.access_token);
        pm.environment.set("jwt_expiry", now + (data.expires_in || 3600));
    });
}`

// prerequest wraps script as a collection-scoped prerequest event.
func prerequest(script string) Event {
	return Event{
		Listen: "prerequest",
		Script: Script{
			Type: "text/javascript",
			Exec: strings.Split(script, "\n"),
		},
	}
}
