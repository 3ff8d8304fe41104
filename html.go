/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// roomHTML is a minimal built-in client, good enough to host and play a game
// without a separate frontend build.
const roomHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Quest Party</title>
<style>
  body { font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; }
  h1 { margin-bottom: 0.5rem; }
  #status { margin-bottom: 1rem; font-size: 0.9rem; }
  #log { margin-top: 1rem; padding: 0; list-style: none; max-height: 24rem; overflow-y: auto; }
  #log li { padding: 0.25rem 0; border-bottom: 1px solid #ddd; font-size: 0.85rem; }
  #controls button, #controls input { margin-right: 0.5rem; margin-bottom: 0.5rem; }
</style>
</head>
<body>
<h1>Quest Party</h1>
<div id="status">Connecting…</div>
<div id="controls">
  <input id="name" placeholder="Name">
  <input id="age" type="number" placeholder="Age" min="1" max="120" style="width:5rem">
  <button id="join">Join</button>
  <button id="start">Start game</button>
  <input id="answer" placeholder="Answer">
  <button id="submit">Submit</button>
  <button id="again">Play again</button>
</div>
<img id="qr" alt="" width="160" height="160">
<ul id="log"></ul>

<script>
(function() {
  const statusEl = document.getElementById('status');
  const logEl = document.getElementById('log');

  let challengeStarted = 0;

  const proto = (location.protocol === 'https:') ? 'wss://' : 'ws://';
  const base = location.pathname.replace(/\/$/, '');
  const ws = new WebSocket(proto + location.host + base + '/ws');

  document.getElementById('qr').src = base + '/qr';

  function log(text) {
    const li = document.createElement('li');
    li.textContent = text;
    logEl.prepend(li);
  }

  function send(msg) {
    ws.send(JSON.stringify(msg));
  }

  ws.onopen = function() { statusEl.textContent = 'Connected.'; };
  ws.onclose = function() { statusEl.textContent = 'Disconnected.'; };
  ws.onerror = function() { statusEl.textContent = 'Error with WebSocket.'; };

  ws.onmessage = function(event) {
    try {
      const msg = JSON.parse(event.data);
      switch (msg.type) {
      case 'game-created':
        statusEl.textContent = 'Room ' + msg.roomCode + ' — share the QR code to join.';
        break;
      case 'game-state-update':
        statusEl.textContent = msg.state + ' (round ' + msg.round + ', section ' + msg.section + ')';
        break;
      case 'challenge-started':
        challengeStarted = Date.now();
        log('Challenge: ' + JSON.stringify(msg.questions));
        break;
      case 'error':
        log('Error: ' + msg.message);
        break;
      default:
        log(msg.type + ': ' + event.data);
      }
    } catch (e) {
      console.error('bad message', e);
    }
  };

  document.getElementById('join').onclick = function() {
    send({
      type: 'join-game',
      name: document.getElementById('name').value,
      age: parseInt(document.getElementById('age').value, 10) || 0
    });
  };
  document.getElementById('start').onclick = function() { send({ type: 'start-game' }); };
  document.getElementById('again').onclick = function() { send({ type: 'play-again' }); };
  document.getElementById('submit').onclick = function() {
    const raw = document.getElementById('answer').value;
    const asNumber = Number(raw);
    send({
      type: 'submit-answer',
      answer: (raw !== '' && !isNaN(asNumber)) ? asNumber : raw,
      timeSpentMs: challengeStarted ? (Date.now() - challengeStarted) : 0
    });
  };

  document.addEventListener('keydown', function(e) {
    const dirs = { ArrowUp: 'up', ArrowDown: 'down', ArrowLeft: 'left', ArrowRight: 'right' };
    if (dirs[e.key]) {
      send({ type: 'snake-direction', direction: dirs[e.key] });
      send({ type: 'memory-move', direction: dirs[e.key] });
    }
    if (e.key === ' ') {
      send({ type: 'memory-select' });
    }
    if (e.key >= '1' && e.key <= '7') {
      send({ type: 'connect4-move', column: parseInt(e.key, 10) - 1 });
    }
  });
})();
</script>
</body>
</html>
`
