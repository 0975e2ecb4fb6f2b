package coordinator

// pageTemplates holds the role selection page and the web actor page.
// The web actor can only signal readiness; it never performs the host action.
const pageTemplates = `
{{define "index"}}<!doctype html>
<html>
<head><meta charset="utf-8"><title>readyctl</title></head>
<body>
<h1>Choose a role</h1>
<ul>
{{range .Roles}}<li><a href="/client?role={{.}}">{{.}}</a></li>
{{end}}</ul>
</body>
</html>{{end}}

{{define "client"}}<!doctype html>
<html>
<head><meta charset="utf-8"><title>readyctl {{.Role}}</title></head>
<body>
<h1>{{.Role}}</h1>
<p>self: <span id="self">waiting</span> / {{.PeerRole}}: <span id="peer">waiting</span></p>
<button id="ready" disabled>ready</button>
<p id="conn">connecting</p>
<p>channel: <code id="endpoint">{{.WSURL}}</code></p>
<script>
(function () {
  var role = {{.Role}};
  var peerRole = {{.PeerRole}};
  var button = document.getElementById("ready");
  var connected = false;
  var ws = new WebSocket(document.getElementById("endpoint").textContent);
  function mark(id, ready) {
    document.getElementById(id).textContent = ready ? "ready" : "waiting";
  }
  ws.onopen = function () {
    connected = true;
    document.getElementById("conn").textContent = "connected";
  };
  ws.onclose = function () {
    connected = false;
    button.disabled = true;
    document.getElementById("conn").textContent = "disconnected";
  };
  ws.onmessage = function (msg) {
    var env = JSON.parse(msg.data);
    if (env.event !== "status_update") {
      return;
    }
    var self = env.data[role + "_ready"];
    mark("self", self);
    mark("peer", env.data[peerRole + "_ready"]);
    button.disabled = self || !connected;
  };
  button.onclick = function () {
    button.disabled = true;
    ws.send(JSON.stringify({event: "ready", data: {player: role}}));
  };
})();
</script>
</body>
</html>{{end}}
`
